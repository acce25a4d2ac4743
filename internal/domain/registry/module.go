package registry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/webitel/benefit-solver/config"
)

type dispatcherParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
	Secure *slog.Logger `name:"secure"`
	Tracer trace.TracerProvider
}

var Module = fx.Module("registry",
	fx.Provide(
		// [CLEAN_INJECTION] Configure Dispatcher using Functional Options
		func(p dispatcherParams) *Dispatcher {
			return NewDispatcher(p.Logger,
				WithWorkers(p.Config.Dispatch.Workers),
				WithQueueSize(p.Config.Dispatch.QueueSize),
				WithTimeout(p.Config.Dispatch.Timeout),
				WithSecureLogger(p.Secure),
				WithTracer(p.Tracer.Tracer("github.com/webitel/benefit-solver/registry")),
			)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, d *Dispatcher) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				d.Start()
				return nil
			},
			OnStop: func(context.Context) error {
				d.Shutdown() // [GRACEFUL_SHUTDOWN] Finish packets already taken off the rapid
				return nil
			},
		})
	}),
)
