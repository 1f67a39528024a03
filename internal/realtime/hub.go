package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"whiteboard-backend/internal/model"
)

const (
	// broadcastBuffer frames queued per room before drops start.
	broadcastBuffer = 100
	// writeWait cap on a single socket write; a peer that stops reading
	// gets an error instead of holding the broadcaster.
	writeWait = 10 * time.Second
)

// Hub manages one Room per open whiteboard
type Hub struct {
	rooms map[int64]*Room
	mu    sync.RWMutex
}

// Room live connections editing a single whiteboard. Socket writes run
// on the room's broadcaster goroutine, never on the caller: Broadcast
// only hands the frame over, so the mutation worker cannot be stalled
// by a slow peer.
type Room struct {
	WhiteboardID int64
	clients      map[string]*Client
	broadcast    chan *frame
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	hub          *Hub
}

// frame a marshaled event waiting for fan-out
type frame struct {
	exceptSocket string
	eventType    string
	data         []byte
}

// Client one websocket connection. writeMu serializes writes; fiber's
// websocket connections are not safe for concurrent WriteMessage.
type Client struct {
	SocketID string
	UserID   int64
	Conn     *websocket.Conn
	writeMu  sync.Mutex
}

// Event wire envelope for room broadcasts
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{rooms: make(map[int64]*Room)}
}

// GetOrCreateRoom gets an existing room or creates a new one
func (h *Hub) GetOrCreateRoom(whiteboardID int64) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, exists := h.rooms[whiteboardID]; exists {
		return room
	}

	ctx, cancel := context.WithCancel(context.Background())
	room := &Room{
		WhiteboardID: whiteboardID,
		clients:      make(map[string]*Client),
		broadcast:    make(chan *frame, broadcastBuffer),
		ctx:          ctx,
		cancel:       cancel,
		hub:          h,
	}
	h.rooms[whiteboardID] = room
	go room.runBroadcaster()
	log.Printf("[Hub] Created room for whiteboard %d", whiteboardID)
	return room
}

// RemoveRoom drops an empty room and stops its broadcaster.
func (h *Hub) RemoveRoom(whiteboardID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, exists := h.rooms[whiteboardID]; exists {
		room.mu.RLock()
		empty := len(room.clients) == 0
		room.mu.RUnlock()
		if empty {
			room.cancel()
			delete(h.rooms, whiteboardID)
			log.Printf("[Hub] Removed room for whiteboard %d", whiteboardID)
		}
	}
}

// room read-only lookup; nil when nobody has the board open.
func (h *Hub) room(whiteboardID int64) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[whiteboardID]
}

// AddClient registers a connection in the room
func (r *Room) AddClient(socketID string, userID int64, conn *websocket.Conn) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	client := &Client{SocketID: socketID, UserID: userID, Conn: conn}
	r.clients[socketID] = client
	log.Printf("[Room %d] Added client %s (user %d), total: %d",
		r.WhiteboardID, socketID, userID, len(r.clients))
	return client
}

// RemoveClient drops a connection; the room is removed when it empties.
func (r *Room) RemoveClient(socketID string) {
	r.mu.Lock()
	delete(r.clients, socketID)
	remaining := len(r.clients)
	r.mu.Unlock()

	log.Printf("[Room %d] Removed client %s, remaining: %d",
		r.WhiteboardID, socketID, remaining)

	if remaining == 0 {
		r.hub.RemoveRoom(r.WhiteboardID)
	}
}

// Broadcast queues an event for every client except the excluded
// socket. Pass exceptSocket "" to reach everyone. Non-blocking; when
// the room's buffer is full the frame is dropped with a log.
func (r *Room) Broadcast(exceptSocket string, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Room %d] Failed to marshal %s event: %v", r.WhiteboardID, event.Type, err)
		return
	}

	select {
	case r.broadcast <- &frame{exceptSocket: exceptSocket, eventType: event.Type, data: data}:
	default:
		log.Printf("[Room %d] Broadcast buffer full, dropping %s event", r.WhiteboardID, event.Type)
	}
}

// runBroadcaster drains the room's frame channel onto its sockets.
func (r *Room) runBroadcaster() {
	log.Printf("[Room %d] Broadcaster started", r.WhiteboardID)
	defer log.Printf("[Room %d] Broadcaster stopped", r.WhiteboardID)

	for {
		select {
		case <-r.ctx.Done():
			return
		case f := <-r.broadcast:
			r.deliver(f)
		}
	}
}

func (r *Room) deliver(f *frame) {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		if c.SocketID == f.exceptSocket {
			continue
		}
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, client := range clients {
		client.send(f.data)
	}
}

func (c *Client) send(data []byte) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[Client %s] Failed to send: %v", c.SocketID, err)
	}
}

// Send delivers an event to this client only.
func (c *Client) Send(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Client %s] Failed to marshal %s event: %v", c.SocketID, event.Type, err)
		return
	}
	c.send(data)
}

// broadcastToRoom no-op when the board has no open room.
func (h *Hub) broadcastToRoom(whiteboardID int64, exceptSocket string, event *Event) {
	if room := h.room(whiteboardID); room != nil {
		room.Broadcast(exceptSocket, event)
	}
}

// BroadcastUpsert fans out created or updated elements.
func (h *Hub) BroadcastUpsert(whiteboardID int64, exceptSocket string, elements []model.WhiteboardElement) {
	h.broadcastToRoom(whiteboardID, exceptSocket, &Event{
		Type:    "elements_upserted",
		Payload: map[string]any{"elements": elements},
	})
}

// BroadcastDelete fans out removed element uuids.
func (h *Hub) BroadcastDelete(whiteboardID int64, exceptSocket string, uuids []string) {
	h.broadcastToRoom(whiteboardID, exceptSocket, &Event{
		Type:    "elements_deleted",
		Payload: map[string]any{"uuids": uuids},
	})
}

// BroadcastReorder fans out the full reordered stack so clients can
// reconcile z-indexes in one pass.
func (h *Hub) BroadcastReorder(whiteboardID int64, exceptSocket string, direction model.ReorderDirection, elements []model.WhiteboardElement) {
	h.broadcastToRoom(whiteboardID, exceptSocket, &Event{
		Type: "elements_reordered",
		Payload: map[string]any{
			"direction": direction,
			"elements":  elements,
		},
	})
}

// BroadcastPresence announces a join or leave to everyone in the room,
// including the actor's other tabs.
func (h *Hub) BroadcastPresence(whiteboardID, userID int64, eventType string, onlineCount int) {
	h.broadcastToRoom(whiteboardID, "", &Event{
		Type: eventType,
		Payload: map[string]any{
			"user_id":      userID,
			"online_count": onlineCount,
		},
	})
}
