package bus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
)

const maxPublishBody = 8 << 20

var topicRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Hub exposes a Local transport over HTTP so other processes can join it.
//
//	GET  /stream           server-sent events for every topic
//	POST /publish/{topic}  publish the JSON request body
type Hub struct {
	local  *Local
	logger *slog.Logger
	router chi.Router
}

// NewHub serves local over HTTP.
func NewHub(local *Local, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{local: local, logger: logger}

	r := chi.NewRouter()
	r.Get("/stream", h.stream)
	r.Post("/publish/{topic}", h.publish)
	h.router = r
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Hub) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := make(chan Message, subscriberBuffer)
	unsubscribe, err := h.local.Subscribe(AllTopics, func(msg Message) {
		select {
		case ch <- msg:
		default:
			h.logger.Warn("bus: stream client too slow, message dropped", slog.String("topic", msg.Topic))
		}
	})
	if err != nil {
		http.Error(w, "bus closed", http.StatusServiceUnavailable)
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	// The comment tells the client its subscription is live.
	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.local.stopped:
			return
		case msg := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Topic, msg.Data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Hub) publish(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")
	if !topicRe.MatchString(topic) {
		http.Error(w, "invalid topic", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPublishBody))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	// SSE data must stay on one line.
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		http.Error(w, "body must be JSON", http.StatusBadRequest)
		return
	}

	if err := h.local.Publish(r.Context(), topic, compact.Bytes()); err != nil {
		http.Error(w, "bus closed", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
