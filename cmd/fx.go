package cmd

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/webitel/benefit-solver/config"
	clientdi "github.com/webitel/benefit-solver/infra/client/di"
	infrapubsub "github.com/webitel/benefit-solver/infra/pubsub"
	httpserver "github.com/webitel/benefit-solver/infra/server/http"
	"github.com/webitel/benefit-solver/internal/domain/registry"
	amqpdi "github.com/webitel/benefit-solver/internal/handler/amqp"
	"github.com/webitel/benefit-solver/internal/handler/need"
	"github.com/webitel/benefit-solver/internal/service"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLevel,
			ProvideLogger,
			fx.Annotate(ProvideSecureLogger, fx.ResultTags(`name:"secure"`)),
			ProvideWatermillLogger,
			ProvideTracerProvider,
			ProvidePubSub,

			fx.Annotate(
				func(d *registry.Dispatcher) httpserver.ReadinessProbe { return d.Running },
				fx.ResultTags(`group:"readiness"`),
			),
			fx.Annotate(
				func(r *message.Router) httpserver.ReadinessProbe { return r.IsRunning },
				fx.ResultTags(`group:"readiness"`),
			),
		),
		fx.WithLogger(ProvideFxLogger),

		// [LIFECYCLE_ORDER] The broker connection is set up first so it is closed last,
		// after the dispatcher has published what it still had queued.
		fx.Invoke(func(infrapubsub.Provider) {}),
		fx.Invoke(WatchConfig),

		clientdi.Module,
		service.Module,
		registry.Module,
		need.Module,
		amqpdi.Module,
		httpserver.Module,
	)
}
