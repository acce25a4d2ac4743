package amqp

import (
	"go.uber.org/fx"

	pubsubadapter "github.com/webitel/benefit-solver/internal/adapter/pubsub"
	"github.com/webitel/benefit-solver/internal/domain/registry"
)

var Module = fx.Module("amqp-handler",
	fx.Provide(
		fx.Annotate(
			pubsubadapter.NewRapidPublisherProvider,
			fx.As(new(registry.Publisher)),
		),

		NewRapidHandler,
		NewWatermillRouter,
	),

	fx.Invoke(RegisterHandlers),
	fx.Invoke(RunRouter),
)
