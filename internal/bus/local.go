package bus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/starford/daily/internal/apperr"
)

const subscriberBuffer = 256

type subscriber struct {
	topic   string
	ch      chan Message
	handler Handler
}

// Local is an in-process Transport.
//
// Concurrency model: a single internal event loop (goroutine) owns the
// subscriber set. Public methods communicate with this loop through
// channels, so no mutexes are required. Every subscriber has its own
// buffered queue drained by its own goroutine; a full queue drops the
// message for that subscriber only.
type Local struct {
	logger *slog.Logger

	subscribeCh   chan *subscriber
	unsubscribeCh chan *subscriber
	publishCh     chan Message
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewLocal starts an in-process transport.
func NewLocal(logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Local{
		logger:        logger,
		subscribeCh:   make(chan *subscriber),
		unsubscribeCh: make(chan *subscriber),
		publishCh:     make(chan Message, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go l.run()
	return l
}

func (l *Local) run() {
	defer close(l.stopped)

	subs := make(map[*subscriber]struct{})

	for {
		select {
		case <-l.stopCh:
			for s := range subs {
				close(s.ch)
			}
			return

		case s := <-l.subscribeCh:
			subs[s] = struct{}{}

		case s := <-l.unsubscribeCh:
			if _, ok := subs[s]; ok {
				delete(subs, s)
				close(s.ch)
			}

		case msg := <-l.publishCh:
			for s := range subs {
				if s.topic != AllTopics && s.topic != msg.Topic {
					continue
				}
				select {
				case s.ch <- msg:
				default:
					// Subscriber queue full; skip to avoid blocking the loop.
					l.logger.Warn("bus: subscriber queue full, message dropped", slog.String("topic", msg.Topic))
				}
			}

		case resp := <-l.countReqCh:
			resp <- len(subs)
		}
	}
}

// Publish queues data for every subscriber of topic.
func (l *Local) Publish(ctx context.Context, topic string, data []byte) error {
	if l.closed.Load() {
		return apperr.ErrClosed
	}
	select {
	case l.publishCh <- Message{Topic: topic, Data: data}:
		return nil
	case <-l.stopped:
		return apperr.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers h for topic.
func (l *Local) Subscribe(topic string, h Handler) (func(), error) {
	if l.closed.Load() {
		return func() {}, apperr.ErrClosed
	}
	s := &subscriber{topic: topic, ch: make(chan Message, subscriberBuffer), handler: h}

	select {
	case l.subscribeCh <- s:
	case <-l.stopped:
		return func() {}, apperr.ErrClosed
	}

	go deliver(s, l.logger)

	var once sync.Once
	return func() {
		once.Do(func() {
			if l.closed.Load() {
				return
			}
			select {
			case l.unsubscribeCh <- s:
			case <-l.stopped:
			}
		})
	}, nil
}

func deliver(s *subscriber, logger *slog.Logger) {
	for msg := range s.ch {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("bus: handler panic", slog.String("topic", msg.Topic), slog.Any("panic", r))
				}
			}()
			s.handler(msg)
		}()
	}
}

// SubscriberCount returns the number of live subscriptions.
func (l *Local) SubscriberCount() int {
	if l.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case l.countReqCh <- resp:
	case <-l.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-l.stopped:
		return 0
	}
}

// Close stops the loop and ends every subscription.
func (l *Local) Close() error {
	if l.closed.CompareAndSwap(false, true) {
		close(l.stopCh)
	}
	<-l.stopped
	return nil
}
