package bus

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/starford/daily/internal/apperr"
)

const (
	reconnectMin = 250 * time.Millisecond
	reconnectMax = 5 * time.Second
)

// HTTPTransport joins a Hub served by another process.
//
// One background stream carries every topic; handlers run on that stream's
// goroutine in arrival order. Messages published while the stream is down
// are not replayed.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu       sync.Mutex
	handlers map[int]httpSub
	nextID   int
	started  bool

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected chan struct{}
	connOnce  sync.Once
}

type httpSub struct {
	topic   string
	handler Handler
}

// NewHTTPTransport connects lazily to the hub at baseURL (for example
// "http://127.0.0.1:8080/bus").
func NewHTTPTransport(baseURL string, client *http.Client, logger *slog.Logger) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPTransport{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		logger:    logger,
		handlers:  make(map[int]httpSub),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		connected: make(chan struct{}),
	}
}

// Publish posts data to the hub.
func (t *HTTPTransport) Publish(ctx context.Context, topic string, data []byte) error {
	if t.ctx.Err() != nil {
		return apperr.ErrClosed
	}
	u := t.baseURL + "/publish/" + url.PathEscape(topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("bus: build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("bus: publish %s: %w", topic, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("bus: publish %s: hub returned %s", topic, resp.Status)
	}
	return nil
}

// Subscribe registers h and starts the stream on first use.
func (t *HTTPTransport) Subscribe(topic string, h Handler) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctx.Err() != nil {
		return func() {}, apperr.ErrClosed
	}
	id := t.nextID
	t.nextID++
	t.handlers[id] = httpSub{topic: topic, handler: h}

	if !t.started {
		t.started = true
		go t.streamLoop()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.handlers, id)
			t.mu.Unlock()
		})
	}, nil
}

// WaitConnected blocks until the first stream connection is established.
func (t *HTTPTransport) WaitConnected(ctx context.Context) error {
	select {
	case <-t.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the stream.
func (t *HTTPTransport) Close() error {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()

	t.cancel()
	if started {
		<-t.done
	}
	return nil
}

func (t *HTTPTransport) streamLoop() {
	defer close(t.done)

	backoff := reconnectMin
	for {
		err := t.readStream()
		if t.ctx.Err() != nil {
			return
		}
		t.logger.Warn("bus: hub stream lost, reconnecting",
			slog.String("error", errString(err)),
			slog.Duration("backoff", backoff),
		)

		select {
		case <-time.After(backoff):
		case <-t.ctx.Done():
			return
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (t *HTTPTransport) readStream() error {
	req, err := http.NewRequestWithContext(t.ctx, http.MethodGet, t.baseURL+"/stream", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hub returned %s", resp.Status)
	}

	reader := bufio.NewReader(resp.Body)
	var event string
	var data []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if event != "" {
				t.dispatch(Message{Topic: event, Data: []byte(strings.Join(data, "\n"))})
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
			t.connOnce.Do(func() { close(t.connected) })
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}

func (t *HTTPTransport) dispatch(msg Message) {
	t.mu.Lock()
	targets := make([]Handler, 0, len(t.handlers))
	for id := 0; id < t.nextID; id++ {
		s, ok := t.handlers[id]
		if !ok {
			continue
		}
		if s.topic == AllTopics || s.topic == msg.Topic {
			targets = append(targets, s.handler)
		}
	}
	t.mu.Unlock()

	for _, h := range targets {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Error("bus: handler panic", slog.String("topic", msg.Topic), slog.Any("panic", r))
				}
			}()
			h(msg)
		}()
	}
}

func errString(err error) string {
	if err == nil {
		return "stream closed"
	}
	return err.Error()
}
