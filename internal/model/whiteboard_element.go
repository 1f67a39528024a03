package model

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// WhiteboardElement one canvas object. The payload stays opaque JSON;
// clients own its shape. UUID is client-generated and stable across
// edits, so the same element can be upserted from optimistic state.
type WhiteboardElement struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID         string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_whiteboard_uuid,priority:2" json:"uuid"`
	WhiteboardID int64          `gorm:"not null;uniqueIndex:idx_whiteboard_uuid,priority:1" json:"whiteboard_id"`
	AssetID      *int64         `json:"asset_id,omitempty"` // library asset this element embeds
	Element      datatypes.JSON `gorm:"not null" json:"element"`
	ZIndex       int            `gorm:"not null;default:0" json:"z_index"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Whiteboard Whiteboard `gorm:"foreignKey:WhiteboardID" json:"whiteboard,omitempty"`
}

func (WhiteboardElement) TableName() string {
	return "whiteboard_elements"
}

// elementEnvelope is the only structure we ever read out of the opaque
// payload: the type discriminator and, for text elements, the text body.
type elementEnvelope struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PayloadType extracts the type discriminator from an element payload.
// Empty string means the payload carries none.
func PayloadType(element datatypes.JSON) string {
	var env elementEnvelope
	if err := json.Unmarshal(element, &env); err != nil {
		return ""
	}
	return env.Type
}

// IsBlankText reports whether the payload is a text element whose body
// is empty or whitespace only. Such elements are interactive-typing
// artifacts and are filtered before persistence.
func IsBlankText(element datatypes.JSON) bool {
	var env elementEnvelope
	if err := json.Unmarshal(element, &env); err != nil {
		return false
	}
	return env.Type == "text" && strings.TrimSpace(env.Text) == ""
}
