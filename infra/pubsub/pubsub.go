// Package pubsub builds the watermill publisher and subscriber for the configured broker.
package pubsub

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/webitel/benefit-solver/config"
)

// Provider owns the broker connections of one node.
type Provider interface {
	Publisher() message.Publisher
	Subscriber() message.Subscriber
	Close() error
}

type provider struct {
	pub message.Publisher
	sub message.Subscriber
	// shared is set when pub and sub are the same object.
	shared bool
}

// New connects to the broker named by cfg.Driver.
//
// With amqp every topic is a fanout exchange and each group gets its own durable queue
// bound to it, so all groups see every packet while instances of one group share them.
func New(cfg config.BrokerConfig, logger watermill.LoggerAdapter) (Provider, error) {
	switch cfg.Driver {
	case config.DriverAMQP:
		return newAMQP(cfg, logger)
	case config.DriverMemory:
		return NewMemory(logger), nil
	default:
		return nil, fmt.Errorf("pubsub: unknown driver %q", cfg.Driver)
	}
}

func newAMQP(cfg config.BrokerConfig, logger watermill.LoggerAdapter) (Provider, error) {
	amqpCfg := amqp.NewDurablePubSubConfig(cfg.URL, amqp.GenerateQueueNameTopicNameWithSuffix(cfg.Group))

	pub, err := amqp.NewPublisher(amqpCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("pubsub: amqp publisher: %w", err)
	}
	sub, err := amqp.NewSubscriber(amqpCfg, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("pubsub: amqp subscriber: %w", err)
	}
	return &provider{pub: pub, sub: sub}, nil
}

// NewMemory returns an in-process rapid. Publisher and subscriber share one channel,
// so a node sees its own output like it would on a real rapid.
func NewMemory(logger watermill.LoggerAdapter) Provider {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
	return &provider{pub: ch, sub: ch, shared: true}
}

func (p *provider) Publisher() message.Publisher   { return p.pub }
func (p *provider) Subscriber() message.Subscriber { return p.sub }

func (p *provider) Close() error {
	if p.shared {
		return p.pub.Close()
	}
	return errors.Join(p.sub.Close(), p.pub.Close())
}
