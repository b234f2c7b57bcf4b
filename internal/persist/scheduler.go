// Package persist coalesces store mutations into infrequent durable writes.
package persist

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/starford/daily/internal/metrics"
	"github.com/starford/daily/internal/models"
)

// DefaultDelay is the trailing debounce window for the data envelope.
const DefaultDelay = 200 * time.Millisecond

const writeTimeout = 10 * time.Second

// Saver is the durable boundary the scheduler writes through.
type Saver interface {
	SaveData(ctx context.Context, data models.AppData) error
	SaveConfig(ctx context.Context, cfg models.AppConfig) error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDelay sets the debounce window.
func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithLogger sets the logger used for swallowed write failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMetrics records every write.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler owns the pending data snapshot and the debounce timer.
//
// Concurrency model: one internal loop goroutine owns the pending snapshot,
// the timer and every call into the Saver, so writes never overlap and land
// in the order they were requested. Public methods talk to the loop through
// channels and never wait for a write, except Flush and Close.
type Scheduler struct {
	saver   Saver
	delay   time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	scheduleCh chan models.AppData
	configCh   chan models.AppConfig
	flushCh    chan chan struct{}

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewScheduler starts the writer loop.
func NewScheduler(saver Saver, opts ...Option) *Scheduler {
	s := &Scheduler{
		saver:      saver,
		delay:      DefaultDelay,
		logger:     slog.Default(),
		scheduleCh: make(chan models.AppData, 64),
		configCh:   make(chan models.AppConfig, 16),
		flushCh:    make(chan chan struct{}),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s
}

func (s *Scheduler) run() {
	defer close(s.stopped)

	var pending *models.AppData
	timer := time.NewTimer(s.delay)
	if !timer.Stop() {
		<-timer.C
	}

	writePending := func() {
		if pending == nil {
			return
		}
		s.writeData(*pending)
		pending = nil
	}

	for {
		select {
		case <-s.stopCh:
			timer.Stop()
			s.drain(&pending)
			writePending()
			return

		case snap := <-s.scheduleCh:
			pending = &snap
			timer.Reset(s.delay)

		case cfg := <-s.configCh:
			s.writeConfig(cfg)

		case <-timer.C:
			writePending()

		case done := <-s.flushCh:
			timer.Stop()
			s.drain(&pending)
			writePending()
			close(done)
		}
	}
}

// drain consumes requests already queued ahead of a flush or stop.
func (s *Scheduler) drain(pending **models.AppData) {
	for {
		select {
		case snap := <-s.scheduleCh:
			*pending = &snap
		case cfg := <-s.configCh:
			s.writeConfig(cfg)
		default:
			return
		}
	}
}

func (s *Scheduler) writeData(data models.AppData) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	err := s.saver.SaveData(ctx, data)
	s.metrics.PersistWrite("app-data", err)
	if err != nil {
		s.logger.Warn("persist: data write failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("persist: data written", slog.Int("tasks", len(data.Tasks)))
}

func (s *Scheduler) writeConfig(cfg models.AppConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	err := s.saver.SaveConfig(ctx, cfg)
	s.metrics.PersistWrite("app-config", err)
	if err != nil {
		s.logger.Warn("persist: config write failed", slog.String("error", err.Error()))
	}
}

// Schedule replaces the pending snapshot and restarts the debounce timer.
func (s *Scheduler) Schedule(snapshot models.AppData) {
	if s.closed.Load() {
		return
	}
	select {
	case s.scheduleCh <- snapshot:
	case <-s.stopped:
	}
}

// SaveConfig queues an immediate, undebounced config envelope write.
func (s *Scheduler) SaveConfig(cfg models.AppConfig) {
	if s.closed.Load() {
		return
	}
	select {
	case s.configCh <- cfg:
	case <-s.stopped:
	}
}

// Flush writes the pending snapshot now, if any, and waits for it.
func (s *Scheduler) Flush(ctx context.Context) error {
	if s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.flushCh <- done:
	case <-s.stopped:
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

// Close writes any pending snapshot and stops the loop.
func (s *Scheduler) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
	<-s.stopped
}
