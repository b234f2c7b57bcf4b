// Package bus carries typed messages between surfaces.
//
// A Transport moves raw bytes per topic (in-process, over the HTTP hub, or
// through NATS). Bus sits on top of a Transport, encodes payloads, keeps
// outgoing messages in order, and discards echoes of its own sync payloads.
package bus

import "context"

// Message is one delivery on a topic.
type Message struct {
	Topic string
	Data  []byte
}

// Handler receives messages. Handlers of one subscription are called one at a
// time, in publish order.
type Handler func(Message)

// Transport is the raw publish/subscribe channel between surfaces.
type Transport interface {
	Publish(ctx context.Context, topic string, data []byte) error
	// Subscribe registers h for topic (or AllTopics) and returns a function
	// that removes the subscription.
	Subscribe(topic string, h Handler) (func(), error)
	Close() error
}

var (
	_ Transport = (*Local)(nil)
	_ Transport = (*HTTPTransport)(nil)
	_ Transport = (*NATS)(nil)
)
