package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"whiteboard-backend/internal/apperror"
	"whiteboard-backend/internal/model"
)

// WhiteboardStore relational persistence for the whiteboard aggregate
// and its membership.
type WhiteboardStore struct {
	db *gorm.DB
}

// NewWhiteboardStore WhiteboardStore constructor
func NewWhiteboardStore(db *gorm.DB) *WhiteboardStore {
	return &WhiteboardStore{db: db}
}

// FindByID loads a whiteboard with its collaborators. Soft-deleted rows
// are only returned when includeDeleted is set.
func (s *WhiteboardStore) FindByID(id int64, includeDeleted bool) (*model.Whiteboard, error) {
	q := s.db.Preload("Users").Where("id = ?", id)
	if !includeDeleted {
		q = q.Where("deleted_at IS NULL")
	}

	var wb model.Whiteboard
	if err := q.First(&wb).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("whiteboard", id)
		}
		return nil, err
	}
	return &wb, nil
}

// ListByCourse whiteboards in a course, newest first.
func (s *WhiteboardStore) ListByCourse(courseID int64, includeDeleted bool) ([]model.Whiteboard, error) {
	q := s.db.Preload("Users").Where("course_id = ?", courseID)
	if !includeDeleted {
		q = q.Where("deleted_at IS NULL")
	}

	var boards []model.Whiteboard
	err := q.Order("created_at DESC").Find(&boards).Error
	return boards, err
}

// Create inserts a whiteboard with its initial collaborator set.
func (s *WhiteboardStore) Create(courseID int64, title string, userIDs []int64) (*model.Whiteboard, error) {
	wb := model.Whiteboard{
		CourseID: courseID,
		Title:    title,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&wb).Error; err != nil {
			return err
		}
		return s.replaceUsers(tx, wb.ID, userIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.FindByID(wb.ID, false)
}

// Update replaces title and collaborator set.
func (s *WhiteboardStore) Update(id int64, title string, userIDs []int64) (*model.Whiteboard, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Whiteboard{}).
			Where("id = ? AND deleted_at IS NULL", id).
			Update("title", title)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("whiteboard", id)
		}
		return s.replaceUsers(tx, id, userIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.FindByID(id, false)
}

// SoftDelete marks the board deleted; activity references survive.
func (s *WhiteboardStore) SoftDelete(id int64) error {
	now := time.Now()
	res := s.db.Model(&model.Whiteboard{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("whiteboard", id)
	}
	return nil
}

// Restore clears the soft-delete marker. Element history beyond what
// persisted is not resurrected.
func (s *WhiteboardStore) Restore(id int64) error {
	res := s.db.Model(&model.Whiteboard{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", gorm.Expr("NULL"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("whiteboard", id)
	}
	return nil
}

// SetPreviewURLs persists housekeeper output.
func (s *WhiteboardStore) SetPreviewURLs(id int64, imageURL, thumbnailURL string) error {
	return s.db.Model(&model.Whiteboard{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"image_url":     imageURL,
			"thumbnail_url": thumbnailURL,
		}).Error
}

// IsCollaborator membership probe.
func (s *WhiteboardStore) IsCollaborator(whiteboardID, userID int64) (bool, error) {
	var count int64
	err := s.db.Table("whiteboard_users").
		Where("whiteboard_id = ? AND user_id = ?", whiteboardID, userID).
		Count(&count).Error
	return count > 0, err
}

// RoleInCourse returns the user's enrollment role, or "" when the user
// is not enrolled.
func (s *WhiteboardStore) RoleInCourse(userID, courseID int64) (model.CourseRole, error) {
	var cu model.CourseUser
	err := s.db.Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&cu).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return model.CourseRole(cu.Role), nil
}

// FindTeachingViewer returns a user id with read access to every board
// in the course (admin/instructor/ta), for housekeeper render auth.
// Returns 0 when the course has no teaching member.
func (s *WhiteboardStore) FindTeachingViewer(courseID int64) (int64, error) {
	var cu model.CourseUser
	err := s.db.Where("course_id = ? AND role IN ?", courseID,
		[]string{model.RoleAdmin.String(), model.RoleInstructor.String(), model.RoleTA.String()}).
		Order("id ASC").
		First(&cu).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cu.UserID, nil
}

func (s *WhiteboardStore) replaceUsers(tx *gorm.DB, whiteboardID int64, userIDs []int64) error {
	if err := tx.Exec("DELETE FROM whiteboard_users WHERE whiteboard_id = ?", whiteboardID).Error; err != nil {
		return err
	}
	for _, uid := range userIDs {
		if err := tx.Exec("INSERT INTO whiteboard_users (whiteboard_id, user_id) VALUES (?, ?)",
			whiteboardID, uid).Error; err != nil {
			return err
		}
	}
	return nil
}
