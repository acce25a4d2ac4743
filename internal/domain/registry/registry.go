/*
Package registry routes rapid packets to the handlers that subscribed to them.

Key concepts:
  - Subscriptions: a River plus the Handler bound to it. Registration happens at startup;
    the set is read-only while packets flow.
  - Isolation: every matching handler gets its own copy of the packet, its own correlation
    fields and its own span. A failed or panicking handler is logged and forgotten; the
    remaining handlers and the following packets are unaffected.
  - Workers: Submit hands a packet to a bounded pool so one slow backend only blocks the
    worker it runs on, never the consumer.
*/
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/webitel/benefit-solver/internal/domain/correlation"
	"github.com/webitel/benefit-solver/internal/domain/packet"
	"github.com/webitel/benefit-solver/internal/domain/river"
	"github.com/webitel/benefit-solver/internal/metrics"
)

var (
	ErrDuplicateNeed = errors.New("registry: need already registered")
	ErrNotStarted    = errors.New("registry: dispatcher not started")
)

type SubscriptionID int

// Handler answers packets matched by its River.
type Handler interface {
	OnPacket(ctx context.Context, p *packet.Packet) Result
}

type HandlerFunc func(ctx context.Context, p *packet.Packet) Result

func (f HandlerFunc) OnPacket(ctx context.Context, p *packet.Packet) Result { return f(ctx, p) }

// Publisher puts a packet back on the rapid.
type Publisher interface {
	Publish(ctx context.Context, p *packet.Packet) error
}

type subscription struct {
	id      SubscriptionID
	name    string
	river   *river.River
	handler Handler
}

type job struct {
	ctx context.Context
	p   *packet.Packet
	pub Publisher
}

type Dispatcher struct {
	mu   sync.RWMutex
	subs []subscription
	pool *workerPool[job]

	logger *slog.Logger
	secure *slog.Logger
	tracer trace.Tracer

	config struct {
		workers   int
		queueSize int
		timeout   time.Duration
	}
}

func NewDispatcher(logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger: logger,
		tracer: otel.Tracer("github.com/webitel/benefit-solver/registry"),
	}
	d.config.workers = 8
	d.config.queueSize = 64

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register binds h to r. Two rivers answering the same need type cannot coexist,
// since both would write the same solution key.
func (d *Dispatcher) Register(r *river.River, h Handler) (SubscriptionID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if need := r.Need(); need != "" {
		for _, s := range d.subs {
			if s.river.Need() == need {
				return 0, fmt.Errorf("%w: %s", ErrDuplicateNeed, need)
			}
		}
	}

	id := SubscriptionID(len(d.subs) + 1)
	name := r.Need()
	if name == "" {
		name = fmt.Sprintf("subscription-%d", id)
	}
	d.subs = append(d.subs, subscription{id: id, name: name, river: r, handler: h})

	d.logger.Info("SUBSCRIPTION_REGISTERED", "subscription_id", id, "behov", name)
	return id, nil
}

// Dispatch runs every handler whose River matches p and returns their results in
// registration order. It never fails: handler errors are logged here.
func (d *Dispatcher) Dispatch(ctx context.Context, p *packet.Packet, pub Publisher) []Result {
	d.mu.RLock()
	subs := d.subs
	d.mu.RUnlock()

	var results []Result
	for _, s := range subs {
		if !s.river.Matches(p) {
			if d.logger.Enabled(ctx, slog.LevelDebug) {
				d.logger.DebugContext(ctx, "PACKET_NOT_MATCHED", "behov", s.name, "problems", s.river.Problems(p))
			}
			continue
		}
		results = append(results, d.invoke(ctx, s, p.Clone(), pub))
	}
	return results
}

func (d *Dispatcher) invoke(ctx context.Context, s subscription, p *packet.Packet, pub Publisher) Result {
	behovID, _ := p.String(packet.KeyID)
	vedtaksperiodeID, _ := p.String(packet.KeyVedtaksID)

	// [CORRELATION] Fields live only in this derived ctx; nothing to restore afterwards.
	ctx = correlation.With(ctx,
		slog.String(correlation.KeyBehovID, behovID),
		slog.String(correlation.KeyVedtaksperiodeID, vedtaksperiodeID),
	)
	ctx, span := d.tracer.Start(ctx, "need "+s.name, trace.WithAttributes(
		attribute.String("behov", s.name),
		attribute.String("behov_id", behovID),
	))
	defer span.End()

	start := time.Now()
	res := d.call(ctx, s.handler, p)

	if res.Outcome == Solved {
		if res.Packet == nil {
			res = Fail(errors.New("handler reported solved without a packet"))
		} else if err := pub.Publish(ctx, res.Packet); err != nil {
			res = Fail(fmt.Errorf("publish: %w", err))
		} else if d.secure != nil {
			// [PRIVACY] The answer carries the subject id: secure log only.
			raw, _ := res.Packet.MarshalJSON()
			d.secure.InfoContext(ctx, "NEED_PUBLISHED", "behov", s.name, "packet", string(raw))
		}
	}

	if res.Outcome == Failed {
		span.RecordError(res.Cause)
		span.SetStatus(codes.Error, "need failed")
		d.logger.ErrorContext(ctx, "NEED_FAILED", "behov", s.name, "err", res.Cause)
		if d.secure != nil {
			raw, _ := p.MarshalJSON()
			d.secure.ErrorContext(ctx, "NEED_FAILED", "behov", s.name, "err", res.Cause, "packet", string(raw))
		}
	}

	metrics.NeedsHandled.WithLabelValues(s.name, res.Outcome.String()).Inc()
	metrics.NeedDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
	return res
}

// call is the failure boundary around a single handler.
func (d *Dispatcher) call(ctx context.Context, h Handler, p *packet.Packet) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			// [PANIC_RECOVERY] A broken handler must not take the consumer down.
			// Reported once, as the need's failure.
			res = Fail(fmt.Errorf("handler panic: %v\n%s", r, debug.Stack()))
		}
	}()
	return h.OnPacket(ctx, p)
}

// Start launches the worker pool used by Submit.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pool != nil {
		return
	}
	d.pool = newWorkerPool(d.config.workers, d.config.queueSize, d.run)
	d.logger.Info("DISPATCHER_STARTED", "workers", d.config.workers, "queue_size", d.config.queueSize)
}

// Running reports whether Submit accepts packets.
func (d *Dispatcher) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pool != nil
}

// Submit queues p for asynchronous dispatch. It blocks while the queue is full.
// The job keeps the values of ctx but not its cancellation: the consumer's ctx ends
// as soon as the message is acknowledged.
func (d *Dispatcher) Submit(ctx context.Context, p *packet.Packet, pub Publisher) error {
	d.mu.RLock()
	pool := d.pool
	d.mu.RUnlock()
	if pool == nil {
		return ErrNotStarted
	}

	if err := pool.Submit(ctx, job{ctx: context.WithoutCancel(ctx), p: p, pub: pub}); err != nil {
		return err
	}
	metrics.QueueDepth.Set(float64(pool.QueueLen()))
	return nil
}

func (d *Dispatcher) run(j job) {
	ctx := j.ctx
	if d.config.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.timeout)
		defer cancel()
	}
	d.Dispatch(ctx, j.p, j.pub)
}

// Shutdown waits for queued packets to be processed.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	pool := d.pool
	d.pool = nil
	d.mu.Unlock()

	if pool != nil {
		pool.Drain()
		d.logger.Info("DISPATCHER_STOPPED")
	}
}
