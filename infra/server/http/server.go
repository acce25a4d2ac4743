// Package httpserver exposes the liveness, readiness and metrics endpoints.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/webitel/benefit-solver/config"
)

// ReadinessProbe reports whether one part of the node can take traffic.
type ReadinessProbe func() bool

// NewRouter builds the routes. The node is ready once every probe passes.
func NewRouter(probes ...ReadinessProbe) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/isalive", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})
	r.Get("/isready", func(w http.ResponseWriter, _ *http.Request) {
		for _, ready := range probes {
			if !ready() {
				http.Error(w, "NOT_READY", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type serverParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
	Probes []ReadinessProbe `group:"readiness"`
}

func NewServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:              p.Config.HTTP.Addr,
		Handler:           NewRouter(p.Probes...),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func run(lc fx.Lifecycle, srv *http.Server, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("HTTP_SERVER_STARTED", "addr", ln.Addr().String())

			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP_SERVER_FAILED", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("http",
	fx.Provide(NewServer),
	fx.Invoke(run),
)
