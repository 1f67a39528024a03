package handler

import (
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/queue"
	"whiteboard-backend/internal/realtime"
	"whiteboard-backend/internal/service"
	"whiteboard-backend/internal/session"
)

// WhiteboardWSHandler live editing connection handler. Each connection
// gets a fresh socket id; its mutations flow through the same queue as
// the REST surface.
type WhiteboardWSHandler struct {
	boards   *service.WhiteboardService
	pipeline *service.Pipeline
	queue    *queue.MutationQueue
	sessions *session.Store
	presence *presence.Manager
	hub      *realtime.Hub
}

// NewWhiteboardWSHandler WhiteboardWSHandler constructor
func NewWhiteboardWSHandler(boards *service.WhiteboardService, pipeline *service.Pipeline, q *queue.MutationQueue, sessions *session.Store, pres *presence.Manager, hub *realtime.Hub) *WhiteboardWSHandler {
	return &WhiteboardWSHandler{
		boards:   boards,
		pipeline: pipeline,
		queue:    q,
		sessions: sessions,
		presence: pres,
		hub:      hub,
	}
}

// wsRequest inbound client message
type wsRequest struct {
	Type      string                  `json:"type"` // add, update, delete, reorder, ping, leave
	Elements  []queue.ElementMutation `json:"elements,omitempty"`
	UUIDs     []string                `json:"uuids,omitempty"`
	Direction string                  `json:"direction,omitempty"`
}

// HandleWebSocket runs a connection from join to disconnect.
func (h *WhiteboardWSHandler) HandleWebSocket(c *websocket.Conn) {
	actorVal := c.Locals("actor")
	boardVal := c.Locals("whiteboardID")

	actor, ok1 := actorVal.(*auth.Actor)
	whiteboardID, ok2 := boardVal.(int64)
	if !ok1 || !ok2 {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"message":"invalid session"}}`))
		c.Close()
		return
	}

	// Visibility check before the room is touched. Deleted boards may
	// still be joined read-only by teaching staff via the REST surface;
	// the live surface only serves boards the actor can edit or watch.
	if _, err := h.boards.Get(actor, whiteboardID, false); err != nil {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"message":"whiteboard not available"}}`))
		c.Close()
		return
	}

	socketID := uuid.NewString()

	if err := h.sessions.Join(socketID, actor.ID, whiteboardID); err != nil {
		log.Printf("[WhiteboardWS] Session join failed: %v", err)
		c.Close()
		return
	}
	if err := h.presence.SetPresence(socketID, actor.ID, whiteboardID); err != nil {
		log.Printf("[WhiteboardWS] Presence set failed: %v", err)
	}

	room := h.hub.GetOrCreateRoom(whiteboardID)
	client := room.AddClient(socketID, actor.ID, c)

	log.Printf("[WhiteboardWS] Connected: whiteboard=%d, user=%d, socket=%s", whiteboardID, actor.ID, socketID)

	h.sendSnapshot(client, actor, whiteboardID, socketID)
	h.announcePresence(whiteboardID, actor.ID, "user_joined")

	explicitLeave := false
	defer func() {
		room.RemoveClient(socketID)
		if err := h.presence.RemovePresence(socketID, whiteboardID); err != nil {
			log.Printf("[WhiteboardWS] Presence remove failed: %v", err)
		}
		// Only an explicit leave clears the liveness row; a transient
		// drop keeps it so a quick reconnect stays "online". The reaper
		// collects rows the client never came back for.
		if explicitLeave {
			if err := h.sessions.Leave(socketID); err != nil {
				log.Printf("[WhiteboardWS] Session leave failed: %v", err)
			}
		}
		c.Close()
		h.announcePresence(whiteboardID, actor.ID, "user_left")
		log.Printf("[WhiteboardWS] Disconnected: whiteboard=%d, user=%d, socket=%s", whiteboardID, actor.ID, socketID)
	}()

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			return
		}

		var msg wsRequest
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "add", "update":
			h.enqueueMutation(client, &queue.Transaction{
				Kind:         queue.KindUpsert,
				WhiteboardID: whiteboardID,
				CourseID:     actor.CourseID,
				UserID:       actor.ID,
				SocketID:     socketID,
				Elements:     msg.Elements,
				UpdateOnly:   msg.Type == "update",
			})
		case "delete":
			h.enqueueMutation(client, &queue.Transaction{
				Kind:         queue.KindDelete,
				WhiteboardID: whiteboardID,
				CourseID:     actor.CourseID,
				UserID:       actor.ID,
				SocketID:     socketID,
				UUIDs:        msg.UUIDs,
			})
		case "reorder":
			h.enqueueMutation(client, &queue.Transaction{
				Kind:         queue.KindReorder,
				WhiteboardID: whiteboardID,
				CourseID:     actor.CourseID,
				UserID:       actor.ID,
				SocketID:     socketID,
				UUIDs:        msg.UUIDs,
				Direction:    model.ReorderDirection(msg.Direction),
			})
		case "ping":
			h.handlePing(client, socketID)
		case "leave":
			explicitLeave = true
			return
		}
	}
}

// enqueueMutation prechecks and enqueues; rejections go back to the
// sender only.
func (h *WhiteboardWSHandler) enqueueMutation(client *realtime.Client, tx *queue.Transaction) {
	if err := h.pipeline.Precheck(tx); err != nil {
		client.Send(&realtime.Event{
			Type:    "error",
			Payload: map[string]any{"message": err.Error()},
		})
		return
	}
	if !h.queue.Enqueue(tx) {
		client.Send(&realtime.Event{
			Type:    "error",
			Payload: map[string]any{"message": "server is shutting down"},
		})
	}
}

// handlePing refreshes both liveness stores and answers with pong.
func (h *WhiteboardWSHandler) handlePing(client *realtime.Client, socketID string) {
	if err := h.sessions.Touch(socketID); err != nil {
		log.Printf("[WhiteboardWS] Session touch failed: %v", err)
	}
	if err := h.presence.Heartbeat(socketID); err != nil {
		log.Printf("[WhiteboardWS] Presence heartbeat failed: %v", err)
	}
	client.Send(&realtime.Event{Type: "pong"})
}

// sendSnapshot delivers current board state to the joining client.
func (h *WhiteboardWSHandler) sendSnapshot(client *realtime.Client, actor *auth.Actor, whiteboardID int64, socketID string) {
	snapshot, err := h.boards.GetSnapshot(actor, whiteboardID)
	if err != nil {
		log.Printf("[WhiteboardWS] Snapshot for whiteboard %d failed: %v", whiteboardID, err)
		client.Send(&realtime.Event{
			Type:    "error",
			Payload: map[string]any{"message": "failed to load whiteboard"},
		})
		return
	}

	client.Send(&realtime.Event{
		Type: "snapshot",
		Payload: map[string]any{
			"socket_id":    socketID,
			"whiteboard":   snapshot.Whiteboard,
			"elements":     snapshot.Elements,
			"users":        snapshot.Users,
			"online_count": snapshot.OnlineCount,
		},
	})
}

// announcePresence recomputes the online roster and tells the room.
func (h *WhiteboardWSHandler) announcePresence(whiteboardID, userID int64, eventType string) {
	online, err := h.sessions.OnlineUserIDs(whiteboardID)
	if err != nil {
		log.Printf("[WhiteboardWS] Online roster lookup failed: %v", err)
		return
	}
	h.hub.BroadcastPresence(whiteboardID, userID, eventType, len(online))
}
