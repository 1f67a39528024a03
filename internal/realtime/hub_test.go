package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateRoom_ReturnsExisting(t *testing.T) {
	h := NewHub()
	a := h.GetOrCreateRoom(1)
	b := h.GetOrCreateRoom(1)
	assert.Same(t, a, b)

	a.cancel()
}

func TestRemoveClient_RemovesEmptyRoom(t *testing.T) {
	h := NewHub()
	room := h.GetOrCreateRoom(1)
	room.AddClient("sock-1", 100, nil)
	room.AddClient("sock-2", 200, nil)

	room.RemoveClient("sock-1")
	assert.NotNil(t, h.room(1), "room survives while a client remains")

	room.RemoveClient("sock-2")
	assert.Nil(t, h.room(1), "empty room is dropped")
}

// A room whose broadcaster is wedged must never block the caller;
// frames beyond the buffer are dropped, not waited on.
func TestBroadcast_NeverBlocksCaller(t *testing.T) {
	room := &Room{
		WhiteboardID: 1,
		clients:      make(map[string]*Client),
		broadcast:    make(chan *frame, 1),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			room.Broadcast("", &Event{Type: "elements_upserted"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a full buffer")
	}

	require.Len(t, room.broadcast, 1, "overflow frames dropped")
	f := <-room.broadcast
	assert.Equal(t, "elements_upserted", f.eventType)
}
