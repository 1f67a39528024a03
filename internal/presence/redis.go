package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceData best-effort mirror of a live whiteboard connection. The
// relational session table stays the source of truth; this exists so
// the websocket layer can answer "who is here" without a DB round trip.
type PresenceData struct {
	UserID       int64  `json:"user_id"`
	WhiteboardID int64  `json:"whiteboard_id"`
	SocketID     string `json:"socket_id"`
	LastSeen     int64  `json:"last_seen"`
}

// Manager Redis-backed presence mirror and housekeeper heartbeat.
type Manager struct {
	client *redis.Client
	ctx    context.Context
}

// NewManager Manager constructor
func NewManager(addr string, password string, db int) *Manager {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Manager{
		client: rdb,
		ctx:    context.Background(),
	}
}

func (m *Manager) socketKey(socketID string) string {
	return fmt.Sprintf("presence:socket:%s", socketID)
}

func (m *Manager) boardKey(whiteboardID int64) string {
	return fmt.Sprintf("presence:whiteboard:%d", whiteboardID)
}

// SetPresence marks a connection live, with a TTL safety net so dropped
// sockets evaporate on their own.
func (m *Manager) SetPresence(socketID string, userID, whiteboardID int64) error {
	data := PresenceData{
		UserID:       userID,
		WhiteboardID: whiteboardID,
		SocketID:     socketID,
		LastSeen:     time.Now().Unix(),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	pipe := m.client.Pipeline()
	pipe.Set(m.ctx, m.socketKey(socketID), jsonData, 10*time.Minute)
	pipe.SAdd(m.ctx, m.boardKey(whiteboardID), socketID)
	pipe.Expire(m.ctx, m.boardKey(whiteboardID), 10*time.Minute)
	_, err = pipe.Exec(m.ctx)
	return err
}

// Heartbeat extends a connection's TTL on accepted mutations.
func (m *Manager) Heartbeat(socketID string) error {
	ok, err := m.client.Expire(m.ctx, m.socketKey(socketID), 10*time.Minute).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("socket %s not present", socketID)
	}
	return nil
}

// RemovePresence clears a connection on explicit leave.
func (m *Manager) RemovePresence(socketID string, whiteboardID int64) error {
	pipe := m.client.Pipeline()
	pipe.Del(m.ctx, m.socketKey(socketID))
	pipe.SRem(m.ctx, m.boardKey(whiteboardID), socketID)
	_, err := pipe.Exec(m.ctx)
	return err
}

// HousekeeperHeartbeat records the timestamp of the last completed
// preview cycle; external health checks read this key.
func (m *Manager) HousekeeperHeartbeat() error {
	return m.client.Set(m.ctx, "housekeeper:last_cycle", time.Now().Unix(), 0).Err()
}

// LastHousekeeperCycle returns the last cycle timestamp, zero when the
// housekeeper has never completed a cycle.
func (m *Manager) LastHousekeeperCycle() (time.Time, error) {
	val, err := m.client.Get(m.ctx, "housekeeper:last_cycle").Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(val, 0), nil
}

// Close shuts the client down.
func (m *Manager) Close() error {
	return m.client.Close()
}
