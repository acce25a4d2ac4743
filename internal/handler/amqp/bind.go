package amqp

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/benefit-solver/internal/adapter/pubsub"
	"github.com/webitel/benefit-solver/internal/domain/packet"
	"github.com/webitel/benefit-solver/internal/domain/registry"
	"github.com/webitel/benefit-solver/internal/metrics"
)

// RapidHandler feeds rapid messages to the dispatcher.
type RapidHandler struct {
	dispatcher *registry.Dispatcher
	publisher  registry.Publisher
	logger     *slog.Logger
}

func NewRapidHandler(dispatcher *registry.Dispatcher, publisher registry.Publisher, logger *slog.Logger) *RapidHandler {
	return &RapidHandler{dispatcher: dispatcher, publisher: publisher, logger: logger}
}

// [INFRASTRUCTURE_BRIDGE]
// Bind connects Watermill to the dispatcher, handling Panic Recovery and Decoding.
func Bind(h *RapidHandler) message.NoPublishHandlerFunc {
	return func(msg *message.Message) (err error) {
		// [PANIC_RECOVERY]
		// Safely handle runtime panics to keep the consumer alive.
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("PANIC_RECOVERED",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
				err = nil
			}
		}()

		metrics.PacketsReceived.Inc()

		// [DECODING]
		p, err := packet.Parse(msg.Payload)
		if err != nil {
			metrics.PacketsDropped.Inc()
			h.logger.Debug("PACKET_DROPPED", "err", err, "msg_id", msg.UUID)
			return nil // ACK: Poison Pill protection.
		}

		if id, ok := p.String(packet.KeyID); ok {
			msg.Metadata.Set(pubsub.MetadataBehovID, id)
		}

		// [EXECUTION]
		// Matching and solving happen on the dispatcher's workers; the consumer only waits
		// for room in the queue.
		if err := h.dispatcher.Submit(msg.Context(), p, h.publisher); err != nil {
			return fmt.Errorf("SUBMIT_FAILED: %w", err) // NACK: another instance of the group takes it.
		}
		return nil
	}
}
