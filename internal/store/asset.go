package store

import (
	"errors"

	"gorm.io/gorm"

	"whiteboard-backend/internal/model"
)

// AssetStore persistence for library assets and export copies.
type AssetStore struct {
	db *gorm.DB
}

// NewAssetStore AssetStore constructor
func NewAssetStore(db *gorm.DB) *AssetStore {
	return &AssetStore{db: db}
}

// CreateWhiteboardAsset snapshots a board's element set into a new
// immutable whiteboard-type asset. The copies are deep: later edits to
// the live board never touch the export.
func (s *AssetStore) CreateWhiteboardAsset(courseID int64, title string, description *string, ownerIDs, categoryIDs []int64, elements []model.WhiteboardElement) (*model.Asset, error) {
	asset := model.Asset{
		CourseID:    courseID,
		Type:        model.AssetTypeWhiteboard.String(),
		Title:       title,
		Description: description,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&asset).Error; err != nil {
			return err
		}
		for _, uid := range ownerIDs {
			if err := tx.Create(&model.AssetUser{AssetID: asset.ID, UserID: uid}).Error; err != nil {
				return err
			}
		}
		for _, cid := range categoryIDs {
			if err := tx.Create(&model.AssetCategory{AssetID: asset.ID, CategoryID: cid}).Error; err != nil {
				return err
			}
		}
		for _, el := range elements {
			payload := make([]byte, len(el.Element))
			copy(payload, el.Element)
			row := model.AssetWhiteboardElement{
				AssetID:       asset.ID,
				UUID:          el.UUID,
				Element:       payload,
				SourceAssetID: el.AssetID,
				ZIndex:        el.ZIndex,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// FindByID opaque asset lookup; (nil, nil) when absent.
func (s *AssetStore) FindByID(id int64) (*model.Asset, error) {
	var asset model.Asset
	err := s.db.Preload("Users").First(&asset, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// UserOwnsAsset reports whether the user is already associated with the
// asset. The pipeline's activity crediting is write-once per
// association, so this gate decides whether events fire at all.
func (s *AssetStore) UserOwnsAsset(assetID, userID int64) (bool, error) {
	var count int64
	err := s.db.Model(&model.AssetUser{}).
		Where("asset_id = ? AND user_id = ?", assetID, userID).
		Count(&count).Error
	return count > 0, err
}

// OwnerIDs existing co-owners of an asset.
func (s *AssetStore) OwnerIDs(assetID int64) ([]int64, error) {
	var ids []int64
	err := s.db.Model(&model.AssetUser{}).
		Where("asset_id = ?", assetID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// LinkUser records the user-asset association.
func (s *AssetStore) LinkUser(assetID, userID int64) error {
	return s.db.Create(&model.AssetUser{AssetID: assetID, UserID: userID}).Error
}

// ElementsByAsset returns an export's frozen element copies in paint order.
func (s *AssetStore) ElementsByAsset(assetID int64) ([]model.AssetWhiteboardElement, error) {
	var elements []model.AssetWhiteboardElement
	err := s.db.Where("asset_id = ?", assetID).
		Order("z_index ASC, id ASC").
		Find(&elements).Error
	return elements, err
}
