package session

import (
	"time"

	"gorm.io/gorm"

	"whiteboard-backend/internal/model"
)

// Store liveness records for whiteboard connections. One row per live
// socket; a user with three tabs open holds three rows. "Online" means
// any non-stale row exists for that user on that board.
type Store struct {
	db         *gorm.DB
	staleAfter time.Duration
}

// NewStore Store constructor
func NewStore(db *gorm.DB, staleAfter time.Duration) *Store {
	return &Store{db: db, staleAfter: staleAfter}
}

// Join records a new connection. Rejoining with the same socket id
// (reconnect race) just refreshes the row.
func (s *Store) Join(socketID string, userID, whiteboardID int64) error {
	sess := model.WhiteboardSession{
		SocketID:     socketID,
		UserID:       userID,
		WhiteboardID: whiteboardID,
		UpdatedAt:    time.Now(),
	}
	return s.db.Save(&sess).Error
}

// Touch refreshes the liveness timestamp; called on every accepted
// mutation from that connection.
func (s *Store) Touch(socketID string) error {
	return s.db.Model(&model.WhiteboardSession{}).
		Where("socket_id = ?", socketID).
		Update("updated_at", time.Now()).Error
}

// Leave removes the row for an explicit leave. Transient socket drops
// do NOT call this; the reaper handles those.
func (s *Store) Leave(socketID string) error {
	return s.db.Where("socket_id = ?", socketID).
		Delete(&model.WhiteboardSession{}).Error
}

// ActiveByWhiteboard live (non-stale) sessions for a board.
func (s *Store) ActiveByWhiteboard(whiteboardID int64) ([]model.WhiteboardSession, error) {
	cutoff := time.Now().Add(-s.staleAfter)
	var sessions []model.WhiteboardSession
	err := s.db.Where("whiteboard_id = ? AND updated_at > ?", whiteboardID, cutoff).
		Find(&sessions).Error
	return sessions, err
}

// OnlineUserIDs distinct users with at least one live session on the
// board. Multiple tabs collapse to one entry.
func (s *Store) OnlineUserIDs(whiteboardID int64) (map[int64]bool, error) {
	sessions, err := s.ActiveByWhiteboard(whiteboardID)
	if err != nil {
		return nil, err
	}
	online := make(map[int64]bool, len(sessions))
	for _, sess := range sessions {
		online[sess.UserID] = true
	}
	return online, nil
}

// Reap purges rows older than the staleness threshold. Returns the
// number of rows removed.
func (s *Store) Reap() (int64, error) {
	cutoff := time.Now().Add(-s.staleAfter)
	res := s.db.Where("updated_at <= ?", cutoff).
		Delete(&model.WhiteboardSession{})
	return res.RowsAffected, res.Error
}
