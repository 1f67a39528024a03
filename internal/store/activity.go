package store

import (
	"gorm.io/gorm"

	"whiteboard-backend/internal/model"
)

// ActivityStore append-only writer for the activity/points ledger.
// Fire-and-forget from the core's perspective; nothing here reads it back.
type ActivityStore struct {
	db *gorm.DB
}

// NewActivityStore ActivityStore constructor
func NewActivityStore(db *gorm.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Record appends one ledger row and returns its id so reciprocal events
// can reference it.
func (s *ActivityStore) Record(activityType model.ActivityType, courseID, userID int64, objectType string, objectID int64, assetID, actorID, reciprocalID *int64) (int64, error) {
	row := model.Activity{
		CourseID:     courseID,
		UserID:       userID,
		ActivityType: activityType.String(),
		ObjectType:   objectType,
		ObjectID:     objectID,
		AssetID:      assetID,
		ActorID:      actorID,
		ReciprocalID: reciprocalID,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}
