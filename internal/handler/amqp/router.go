package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/webitel/benefit-solver/config"
	infrapubsub "github.com/webitel/benefit-solver/infra/pubsub"
)

// RapidConsumer is the router handler name of the rapid subscription.
const RapidConsumer = "RAPID_CONSUMER"

func NewWatermillRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 30 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("ROUTER_SETUP_FAILED: %w", err)
	}
	return router, nil
}

// [REGISTRATION_PIPELINE]
// There is one consumer: every packet on the rapid goes to the dispatcher, which decides
// which needs it answers.
func RegisterHandlers(router *message.Router, h *RapidHandler, provider infrapubsub.Provider, cfg *config.Config) error {
	router.AddConsumerHandler(RapidConsumer, cfg.Broker.Topic, provider.Subscriber(), Bind(h)).AddMiddleware(
		TraceIDMiddleware,
		LoggingMiddleware(h.logger),
	)

	h.logger.Info("AMQP_PIPELINE_READY", "topic", cfg.Broker.Topic, "group", cfg.Broker.Group)
	return nil
}

// RunRouter ties the router to the application lifecycle.
func RunRouter(lc fx.Lifecycle, router *message.Router, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := router.Run(context.Background()); err != nil {
					logger.Error("ROUTER_STOPPED", "err", err)
				}
			}()

			select {
			case <-router.Running():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		OnStop: func(context.Context) error {
			return router.Close()
		},
	})
}
