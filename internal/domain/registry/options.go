package registry

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option defines a functional configuration type for the Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets how many packets are processed at the same time.
// A slow backend only ever holds up the worker it runs on.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.config.workers = n
		}
	}
}

// WithQueueSize sets the [BACKPRESSURE] threshold: how many packets may wait for a worker
// before Submit blocks the consumer.
func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		if size >= 0 {
			d.config.queueSize = size
		}
	}
}

// WithSecureLogger routes sensitive lines to a separate, access-restricted sink.
func WithSecureLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.secure = l
		}
	}
}

// WithTracer overrides the tracer used for the per-handler span.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithTimeout bounds how long one packet may spend in its handlers, backend calls included.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.config.timeout = timeout
	}
}
