package amqp

import (
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/webitel/benefit-solver/internal/adapter/pubsub"
)

// [TRACE_ID_MIDDLEWARE]
// Every packet read from the rapid gets a trace id; answers published while handling it reuse it.
func TraceIDMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		traceID := msg.Metadata.Get(pubsub.MetadataTraceID)
		if traceID == "" {
			traceID = uuid.NewString()
			msg.Metadata.Set(pubsub.MetadataTraceID, traceID)
		}

		msg.SetContext(pubsub.WithTraceID(msg.Context(), traceID))
		return h(msg)
	}
}

// [LOGGING_MIDDLEWARE]
// One line per consumed message. A NACKed message is logged at warn level with its cause.
func LoggingMiddleware(logger *slog.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			start := time.Now()
			msgs, err := h(msg)

			attrs := []any{
				"msg_id", msg.UUID,
				"trace_id", msg.Metadata.Get(pubsub.MetadataTraceID),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			// Unset for payloads that never decoded into a packet.
			if id := msg.Metadata.Get(pubsub.MetadataBehovID); id != "" {
				attrs = append(attrs, "behov_id", id)
			}

			if err != nil {
				logger.Warn("MESSAGE_NACKED", append(attrs, "err", err)...)
			} else {
				logger.Debug("MESSAGE_HANDLED", attrs...)
			}
			return msgs, err
		}
	}
}
