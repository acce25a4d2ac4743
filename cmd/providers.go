package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/webitel/benefit-solver/config"
	infrapubsub "github.com/webitel/benefit-solver/infra/pubsub"
	"github.com/webitel/benefit-solver/internal/domain/correlation"
)

// ProvideLevel holds the log level so it can change while running.
func ProvideLevel(cfg *config.Config) (*slog.LevelVar, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	lv := new(slog.LevelVar)
	lv.Set(level)
	return lv, nil
}

func ProvideLogger(cfg *config.Config, level *slog.LevelVar) *slog.Logger {
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if cfg.Log.Otel {
		handler = fanout{handler, otelslog.NewHandler(ServiceName)}
	}

	logger := slog.New(correlation.NewHandler(handler)).With("service", cfg.Service.Name)
	slog.SetDefault(logger)

	logger.Info("SERVICE_STARTING",
		"version", version,
		"commit", commit,
		"commit_date", commitDate,
		"branch", branch,
		"build_timestamp", buildTimestamp,
	)
	return logger
}

// ProvideSecureLogger opens the "tjenestekall" log. Only this log may carry subject ids
// and full packets.
func ProvideSecureLogger(lc fx.Lifecycle, cfg *config.Config, level *slog.LevelVar) (*slog.Logger, error) {
	var w io.Writer = os.Stderr
	if cfg.Log.SecurePath != "" {
		f, err := os.OpenFile(cfg.Log.SecurePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(f.Close))
		w = f
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(correlation.NewHandler(handler)).With("logger", "tjenestekall"), nil
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger.With("component", "watermill"))
}

func ProvideFxLogger(logger *slog.Logger) fxevent.Logger {
	l := &fxevent.SlogLogger{Logger: logger.With("component", "fx")}
	l.UseLogLevel(slog.LevelDebug)
	return l
}

// ProvideTracerProvider creates the span source for need handling. Spans are not exported;
// their ids tie together the log lines of one need.
func ProvideTracerProvider(lc fx.Lifecycle, cfg *config.Config) (trace.TracerProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.Service.Name),
		attribute.String("service.namespace", ServiceNamespace),
		attribute.String("service.version", version),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	lc.Append(fx.StopHook(tp.Shutdown))
	return tp, nil
}

func ProvidePubSub(lc fx.Lifecycle, cfg *config.Config, logger watermill.LoggerAdapter) (infrapubsub.Provider, error) {
	p, err := infrapubsub.New(cfg.Broker, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(p.Close))
	return p, nil
}

// WatchConfig applies a changed log level without a restart. Everything else needs one.
func WatchConfig(cfg *config.Config, level *slog.LevelVar, logger *slog.Logger) {
	cfg.Watch(func(next *config.Config, err error) {
		if err != nil {
			logger.Error("CONFIG_RELOAD_FAILED", "err", err)
			return
		}
		lvl, _ := next.Log.SlogLevel()
		level.Set(lvl)
		logger.Info("CONFIG_RELOADED", "log_level", lvl.String())
	})
}

// fanout sends every record to all handlers.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
