package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/starford/daily/internal/metrics"
	"github.com/starford/daily/internal/models"
)

const (
	outboxSize     = 256
	publishTimeout = 5 * time.Second
)

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithMetrics counts traffic per topic.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

type outbound struct {
	topic string
	data  []byte
	flush chan struct{}
}

// Bus is a surface's view of the transport: it knows its own label, keeps
// outgoing messages in emit order, and drops sync payloads it published
// itself.
//
// Concurrency model: Emit encodes the payload immediately and queues it; a
// single outbox goroutine publishes queued messages one at a time. Publish
// failures are logged and never surface to the caller.
type Bus struct {
	transport Transport
	label     string
	logger    *slog.Logger
	metrics   *metrics.Metrics

	outbox  chan outbound
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New starts a bus for the surface named label. An empty label marks an
// anonymous surface whose sync payloads are never treated as echoes.
func New(t Transport, label string, opts ...Option) *Bus {
	b := &Bus{
		transport: t,
		label:     label,
		logger:    slog.Default(),
		outbox:    make(chan outbound, outboxSize),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// Label returns the surface label.
func (b *Bus) Label() string { return b.label }

// Source returns the label for stamping outgoing sync payloads, or nil for an
// anonymous surface.
func (b *Bus) Source() *string {
	if b.label == "" {
		return nil
	}
	l := b.label
	return &l
}

// IsEcho reports whether a payload stamped with origin came from this surface.
func (b *Bus) IsEcho(origin *string) bool {
	return origin != nil && *origin != "" && b.label != "" && *origin == b.label
}

func (b *Bus) run() {
	defer close(b.stopped)

	for {
		select {
		case <-b.stopCh:
			b.drain()
			return
		case msg := <-b.outbox:
			b.handle(msg)
		}
	}
}

func (b *Bus) drain() {
	for {
		select {
		case msg := <-b.outbox:
			b.handle(msg)
		default:
			return
		}
	}
}

func (b *Bus) handle(msg outbound) {
	if msg.flush != nil {
		close(msg.flush)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.transport.Publish(ctx, msg.topic, msg.data); err != nil {
		b.metrics.BusMessage(msg.topic, "dropped")
		b.logger.Warn("bus: publish failed",
			slog.String("topic", msg.topic),
			slog.String("error", err.Error()),
		)
		return
	}
	b.metrics.BusMessage(msg.topic, "out")
}

// Emit publishes payload on topic. It never blocks on the transport and
// never fails; problems are logged.
func (b *Bus) Emit(topic string, payload any) {
	if b.closed.Load() {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("bus: encode payload", slog.String("topic", topic), slog.String("error", err.Error()))
		return
	}
	select {
	case b.outbox <- outbound{topic: topic, data: data}:
	case <-b.stopped:
	}
}

// Flush waits until everything emitted so far has been handed to the
// transport.
func (b *Bus) Flush(ctx context.Context) error {
	if b.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case b.outbox <- outbound{flush: done}:
	case <-b.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close publishes what is queued and stops the outbox. The transport is left
// open for its owner to close.
func (b *Bus) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Listen subscribes fn to the raw payloads of topic.
func (b *Bus) Listen(topic string, fn func(json.RawMessage)) (func(), error) {
	return b.transport.Subscribe(topic, func(msg Message) {
		b.metrics.BusMessage(msg.Topic, "in")
		fn(json.RawMessage(msg.Data))
	})
}

// Value subscribes fn to decoded payloads of topic. Undecodable payloads are
// logged and skipped.
func Value[T any](b *Bus, topic string, fn func(T)) (func(), error) {
	return b.Listen(topic, func(raw json.RawMessage) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			b.logger.Warn("bus: bad payload", slog.String("topic", topic), slog.String("error", err.Error()))
			return
		}
		fn(v)
	})
}

// Synced subscribes fn to sync payloads of topic, discarding echoes of this
// surface's own emits.
func Synced[T models.Tagged](b *Bus, topic string, fn func(T)) (func(), error) {
	return Value(b, topic, func(v T) {
		if b.IsEcho(v.Origin()) {
			b.metrics.BusEcho(topic)
			b.logger.Debug("bus: echo dropped", slog.String("topic", topic))
			return
		}
		fn(v)
	})
}
