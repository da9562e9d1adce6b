package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/isdelr/intake-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func TestHubBroadcastsIntakeEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a, b := NewClient(hub, nil), NewClient(hub, nil)
	require.True(t, hub.Attach(a))
	require.True(t, hub.Attach(b))

	scheduled := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	hub.PublishIntake(models.IntakeEvent{
		Type:         models.EventClientAdded,
		Email:        "a@x.com",
		FirstName:    "Ada",
		MeetingCount: 1,
		ScheduledFor: scheduled,
	})

	for _, c := range []*Client{a, b} {
		var msg struct {
			Action  string        `json:"action"`
			Payload intakePayload `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(receive(t, c), &msg))
		assert.Equal(t, "client.added", msg.Action)
		assert.Equal(t, "a@x.com", msg.Payload.Email)
		assert.Equal(t, 1, msg.Payload.MeetingCount)
		assert.True(t, msg.Payload.ScheduledFor.Equal(scheduled))
	}
}

func TestHubDetachClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := NewClient(hub, nil)
	require.True(t, hub.Attach(c))
	hub.Detach(c)

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHubStop(t *testing.T) {
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()

	c := NewClient(hub, nil)
	require.True(t, hub.Attach(c))
	hub.Stop()
	hub.Stop()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.False(t, hub.Attach(NewClient(hub, nil)))
	hub.Detach(c)
}

func TestPublishIntakeDoesNotBlockWithoutRun(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.PublishIntake(models.IntakeEvent{Type: models.EventClientUpdated, Email: "b@x.com"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishIntake blocked")
	}
}

func TestErrorMessage(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal(NewErrorMessage("Unknown action: dance"), &msg))
	assert.Equal(t, ActionError, msg.Action)
	assert.Equal(t, map[string]interface{}{"message": "Unknown action: dance"}, msg.Payload)
}

func TestSendToTargetsOneClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a, b := NewClient(hub, nil), NewClient(hub, nil)
	require.True(t, hub.Attach(a))
	require.True(t, hub.Attach(b))

	hub.SendTo(a, NewPongMessage())

	var msg Message
	require.NoError(t, json.Unmarshal(receive(t, a), &msg))
	assert.Equal(t, ActionPong, msg.Action)
	assert.Empty(t, b.Send)

	hub.SendTo(NewClient(hub, nil), NewPongMessage())
}
