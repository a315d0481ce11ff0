package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

func newTestClient(h *Hub, topic string, buffer int) *Client {
	return &Client{hub: h, send: make(chan []byte, buffer), topic: topic}
}

func receive(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case data, ok := <-ch:
		require.True(t, ok, "send channel closed")
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHubDeliversToTopicSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	defer hub.Close()

	subscriber := newTestClient(hub, "dispensary:disp-1", 4)
	bystander := newTestClient(hub, "dispensary:disp-2", 4)
	require.True(t, hub.enroll(subscriber))
	require.True(t, hub.enroll(bystander))

	entries := []domain.QueueEntry{{ID: "entry-1", Position: 1}}
	require.NoError(t, hub.PublishQueue(context.Background(), "dispensary", "disp-1", entries))

	var msg Message
	require.NoError(t, json.Unmarshal(receive(t, subscriber.send), &msg))
	assert.Equal(t, "queue_snapshot", msg.Type)
	assert.Equal(t, "dispensary:disp-1", msg.Topic)

	select {
	case data := <-bystander.send:
		t.Fatalf("bystander received %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubNotifyPatientTargetsSingleTopic(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	defer hub.Close()

	subscriber := newTestClient(hub, "patient:patient-1", 4)
	require.True(t, hub.enroll(subscriber))

	entry := domain.QueueEntry{ID: "entry-1", PatientID: "patient-1", Position: 2}
	require.NoError(t, hub.NotifyPatient(context.Background(), "patient-1", entry))

	var msg Message
	require.NoError(t, json.Unmarshal(receive(t, subscriber.send), &msg))
	assert.Equal(t, "almost_up", msg.Type)
	assert.Equal(t, "patient:patient-1", msg.Topic)
}

func TestHubRefusesEnrollmentAfterClose(t *testing.T) {
	// No run loop: a closed hub that is not draining its channels must
	// still refuse work instead of blocking callers.
	hub := NewHub(zap.NewNop())
	hub.Close()

	// Neither enrollment nor removal may block once the run loop is gone.
	client := newTestClient(hub, "dispensary:disp-1", 1)
	assert.False(t, hub.enroll(client))
	hub.drop(client)

	require.NoError(t, hub.PublishQueue(context.Background(), "dispensary", "disp-1", nil))
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	client := newTestClient(hub, "dispensary:disp-1", 4)
	require.True(t, hub.enroll(client))

	hub.Close()

	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for send channel to close")
	}
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	defer hub.Close()

	slow := newTestClient(hub, "dispensary:disp-1", 1)
	require.True(t, hub.enroll(slow))

	ctx := context.Background()
	require.NoError(t, hub.PublishQueue(ctx, "dispensary", "disp-1", nil))
	require.NoError(t, hub.PublishQueue(ctx, "dispensary", "disp-1", nil))

	// First frame fills the buffer; the second finds it full and evicts
	// the client.
	receive(t, slow.send)
	select {
	case _, ok := <-slow.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for eviction")
	}
}
