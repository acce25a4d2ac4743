package pubsub

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/benefit-solver/config"
	infrapubsub "github.com/webitel/benefit-solver/infra/pubsub"
	"github.com/webitel/benefit-solver/internal/domain/packet"
	"github.com/webitel/benefit-solver/internal/domain/registry"
)

const (
	// MetadataTraceID carries the trace id of the packet that caused a publish.
	MetadataTraceID = "trace_id"
	// MetadataBehovID is the "@id" of a consumed packet, set once it has been decoded.
	MetadataBehovID = "behov_id"
)

type traceIDKey struct{}

// WithTraceID stores the bus-level trace id so outgoing packets can carry it on.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// RapidPublisher writes packets back to the rapid topic.
type RapidPublisher struct {
	publisher message.Publisher
	topic     string
}

var _ registry.Publisher = (*RapidPublisher)(nil)

func NewRapidPublisher(pub message.Publisher, topic string) *RapidPublisher {
	return &RapidPublisher{publisher: pub, topic: topic}
}

// NewRapidPublisherProvider wires the publisher from the broker provider and config.
func NewRapidPublisherProvider(p infrapubsub.Provider, cfg *config.Config) *RapidPublisher {
	return NewRapidPublisher(p.Publisher(), cfg.Broker.Topic)
}

func (r *RapidPublisher) Publish(ctx context.Context, p *packet.Packet) error {
	if p == nil {
		return fmt.Errorf("rapid publisher: cannot publish nil packet")
	}

	payload, err := p.MarshalJSON()
	if err != nil {
		return fmt.Errorf("rapid publisher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if id := TraceID(ctx); id != "" {
		msg.Metadata.Set(MetadataTraceID, id)
	}

	if err := r.publisher.Publish(r.topic, msg); err != nil {
		return fmt.Errorf("rapid publisher: failed to publish to topic %s: %w", r.topic, err)
	}
	return nil
}
