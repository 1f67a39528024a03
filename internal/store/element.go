package store

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"whiteboard-backend/internal/apperror"
	"whiteboard-backend/internal/model"
)

// ElementStore relational persistence for whiteboard elements. Ordering
// and identity live here; everything else is the pipeline's business.
type ElementStore struct {
	db *gorm.DB
}

// NewElementStore ElementStore constructor
func NewElementStore(db *gorm.DB) *ElementStore {
	return &ElementStore{db: db}
}

// FindByWhiteboard returns the board's elements in paint order
// (z ascending, back to front).
func (s *ElementStore) FindByWhiteboard(whiteboardID int64) ([]model.WhiteboardElement, error) {
	var elements []model.WhiteboardElement
	err := s.db.Where("whiteboard_id = ?", whiteboardID).
		Order("z_index ASC, id ASC").
		Find(&elements).Error
	return elements, err
}

// FindByUUID existence probe used to route create vs update.
// Returns (nil, nil) when no row exists.
func (s *ElementStore) FindByUUID(whiteboardID int64, elementUUID string) (*model.WhiteboardElement, error) {
	var element model.WhiteboardElement
	err := s.db.Where("whiteboard_id = ? AND uuid = ?", whiteboardID, elementUUID).
		First(&element).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &element, nil
}

// NextZIndex max(existing)+1, or 0 for an empty board, so new elements
// paint on top by default.
func (s *ElementStore) NextZIndex(whiteboardID int64) (int, error) {
	var max *int
	err := s.db.Model(&model.WhiteboardElement{}).
		Where("whiteboard_id = ?", whiteboardID).
		Select("MAX(z_index)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}

// Create inserts a new element. A missing uuid is generated server-side
// (server-initiated creates); client uuids are preserved so optimistic
// client state stays reconciled.
func (s *ElementStore) Create(whiteboardID int64, elementUUID string, assetID *int64, payload datatypes.JSON, zIndex int) (*model.WhiteboardElement, error) {
	if elementUUID == "" {
		elementUUID = uuid.NewString()
	}

	element := model.WhiteboardElement{
		UUID:         elementUUID,
		WhiteboardID: whiteboardID,
		AssetID:      assetID,
		Element:      payload,
		ZIndex:       zIndex,
	}

	if err := s.db.Create(&element).Error; err != nil {
		return nil, err
	}
	return &element, nil
}

// Update replaces the payload in place (replace, not merge). An unknown
// uuid is an error, never an implicit create; stale client state must
// not resurrect deleted elements.
func (s *ElementStore) Update(whiteboardID int64, elementUUID string, assetID *int64, payload datatypes.JSON) (*model.WhiteboardElement, error) {
	var element model.WhiteboardElement
	err := s.db.Where("whiteboard_id = ? AND uuid = ?", whiteboardID, elementUUID).
		First(&element).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("whiteboard element", elementUUID)
	}
	if err != nil {
		return nil, err
	}

	element.AssetID = assetID
	element.Element = payload
	if err := s.db.Model(&model.WhiteboardElement{}).
		Where("id = ?", element.ID).
		Updates(map[string]interface{}{
			"asset_id": assetID,
			"element":  payload,
		}).Error; err != nil {
		return nil, err
	}
	return &element, nil
}

// Delete removes one element. Deleting an absent uuid is a no-op.
func (s *ElementStore) Delete(whiteboardID int64, elementUUID string) error {
	return s.DeleteAll(whiteboardID, []string{elementUUID})
}

// DeleteAll removes a batch of elements, idempotently.
func (s *ElementStore) DeleteAll(whiteboardID int64, uuids []string) error {
	if len(uuids) == 0 {
		return nil
	}
	return s.db.Where("whiteboard_id = ? AND uuid IN ?", whiteboardID, uuids).
		Delete(&model.WhiteboardElement{}).Error
}

// Reorder applies a direction move to the named elements and returns
// the board in its new paint order.
func (s *ElementStore) Reorder(whiteboardID int64, uuids []string, direction model.ReorderDirection) ([]model.WhiteboardElement, error) {
	if !direction.Valid() {
		return nil, apperror.ValidationFailed("direction", "unknown reorder direction")
	}

	ordered, err := s.FindByWhiteboard(whiteboardID)
	if err != nil {
		return nil, err
	}

	changes := planReorder(ordered, uuids, direction)
	if len(changes) > 0 {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			for _, ch := range changes {
				if err := tx.Model(&model.WhiteboardElement{}).
					Where("whiteboard_id = ? AND uuid = ?", whiteboardID, ch.UUID).
					Update("z_index", ch.ZIndex).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return s.FindByWhiteboard(whiteboardID)
}
