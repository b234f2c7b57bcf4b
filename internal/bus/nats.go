package bus

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/starford/daily/internal/apperr"
)

// NATS carries topics as subjects "<prefix>.<topic>" on a NATS server.
type NATS struct {
	nc     *nats.Conn
	prefix string
}

// DialNATS connects to url.
func DialNATS(url, prefix string, opts ...nats.Option) (*NATS, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("bus: connect nats: %w", err)
	}
	return NewNATS(nc, prefix), nil
}

// NewNATS wraps an established connection.
func NewNATS(nc *nats.Conn, prefix string) *NATS {
	if prefix == "" {
		prefix = "daily"
	}
	return &NATS{nc: nc, prefix: prefix}
}

func (n *NATS) subject(topic string) string {
	if topic == AllTopics {
		return n.prefix + ".>"
	}
	return n.prefix + "." + topic
}

// Publish sends data on the topic subject.
func (n *NATS) Publish(_ context.Context, topic string, data []byte) error {
	if n.nc.IsClosed() {
		return apperr.ErrClosed
	}
	if err := n.nc.Publish(n.subject(topic), data); err != nil {
		return fmt.Errorf("bus: nats publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers h; NATS delivers each subscription's messages in order.
func (n *NATS) Subscribe(topic string, h Handler) (func(), error) {
	if n.nc.IsClosed() {
		return func() {}, apperr.ErrClosed
	}
	trim := n.prefix + "."
	sub, err := n.nc.Subscribe(n.subject(topic), func(m *nats.Msg) {
		h(Message{Topic: strings.TrimPrefix(m.Subject, trim), Data: m.Data})
	})
	if err != nil {
		return func() {}, fmt.Errorf("bus: nats subscribe %s: %w", topic, err)
	}
	// Make sure the server knows about the interest before returning.
	if err := n.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return func() {}, fmt.Errorf("bus: nats flush: %w", err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() error {
	if n.nc.IsClosed() {
		return nil
	}
	return n.nc.Drain()
}
