package bus

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

// Set DAILY_TEST_NATS_URL (for example nats://127.0.0.1:4222) to run.
func TestNATSRoundTrip(t *testing.T) {
	url := os.Getenv("DAILY_TEST_NATS_URL")
	if url == "" {
		t.Skip("DAILY_TEST_NATS_URL not set")
	}

	prefix := "daily-test-" + uuid.NewString()[:8]
	n, err := DialNATS(url, prefix)
	if err != nil {
		t.Fatal(err)
	}
	defer n.Close()

	onTopic := make(chan Message, 1)
	all := make(chan Message, 1)
	if _, err := n.Subscribe(TopicWidgetLockState, func(m Message) { onTopic <- m }); err != nil {
		t.Fatal(err)
	}
	if _, err := n.Subscribe(AllTopics, func(m Message) { all <- m }); err != nil {
		t.Fatal(err)
	}

	if err := n.Publish(context.Background(), TopicWidgetLockState, []byte(`true`)); err != nil {
		t.Fatal(err)
	}

	if msg := recv(t, onTopic); msg.Topic != TopicWidgetLockState || string(msg.Data) != "true" {
		t.Errorf("topic subscriber got %+v", msg)
	}
	if msg := recv(t, all); msg.Topic != TopicWidgetLockState {
		t.Errorf("wildcard got %+v", msg)
	}
}
