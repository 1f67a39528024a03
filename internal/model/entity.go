package model

import (
	"time"

	"gorm.io/datatypes"
)

// User collaborator identity, provisioned by the host courseware system
type User struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	ProfileImg *string   `gorm:"type:text" json:"profile_img,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Courses     []CourseUser `gorm:"foreignKey:UserID" json:"courses,omitempty"`
	Whiteboards []Whiteboard `gorm:"many2many:whiteboard_users" json:"whiteboards,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Course host-side course shell the whiteboards hang off
type Course struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Members     []CourseUser `gorm:"foreignKey:CourseID" json:"members,omitempty"`
	Whiteboards []Whiteboard `gorm:"foreignKey:CourseID" json:"whiteboards,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseUser course enrollment with role
type CourseUser struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID int64  `gorm:"not null;index" json:"course_id"`
	UserID   int64  `gorm:"not null;index" json:"user_id"`
	Role     string `gorm:"type:varchar(20);not null" json:"role"` // ADMIN, INSTRUCTOR, TA, STUDENT, OBSERVER

	// Relations
	Course Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (CourseUser) TableName() string {
	return "course_users"
}

// Whiteboard shared canvas aggregate
type Whiteboard struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID     int64      `gorm:"not null;index" json:"course_id"`
	Title        string     `gorm:"type:varchar(255);not null" json:"title"`
	ImageURL     *string    `gorm:"type:text" json:"image_url,omitempty"`
	ThumbnailURL *string    `gorm:"type:text" json:"thumbnail_url,omitempty"`
	DeletedAt    *time.Time `gorm:"index" json:"deleted_at,omitempty"` // soft delete; set -> read-only
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Course   Course              `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Users    []User              `gorm:"many2many:whiteboard_users" json:"users,omitempty"`
	Elements []WhiteboardElement `gorm:"foreignKey:WhiteboardID" json:"elements,omitempty"`
}

func (Whiteboard) TableName() string {
	return "whiteboards"
}

// WhiteboardSession one row per live websocket connection.
// A user may hold several at once (tabs, devices).
type WhiteboardSession struct {
	SocketID     string    `gorm:"primaryKey;type:varchar(64)" json:"socket_id"`
	UserID       int64     `gorm:"not null;index" json:"user_id"`
	WhiteboardID int64     `gorm:"not null;index" json:"whiteboard_id"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`

	// Relations
	User       User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Whiteboard Whiteboard `gorm:"foreignKey:WhiteboardID" json:"whiteboard,omitempty"`
}

func (WhiteboardSession) TableName() string {
	return "whiteboard_sessions"
}

// Asset library entry. Whiteboard exports land here as immutable
// whiteboard-type records with their own element copies.
type Asset struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID    int64     `gorm:"not null;index" json:"course_id"`
	Type        string    `gorm:"type:varchar(20);not null" json:"type"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	ImageURL    *string   `gorm:"type:text" json:"image_url,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Users    []User                   `gorm:"many2many:asset_users" json:"users,omitempty"`
	Elements []AssetWhiteboardElement `gorm:"foreignKey:AssetID" json:"elements,omitempty"`
}

func (Asset) TableName() string {
	return "assets"
}

// AssetUser asset ownership link
type AssetUser struct {
	AssetID   int64     `gorm:"primaryKey" json:"asset_id"`
	UserID    int64     `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AssetUser) TableName() string {
	return "asset_users"
}

// AssetWhiteboardElement frozen copy of a whiteboard element taken at
// export time. Edits to the live board never touch these rows.
type AssetWhiteboardElement struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	AssetID       int64          `gorm:"not null;index" json:"asset_id"`
	UUID          string         `gorm:"type:varchar(64);not null" json:"uuid"`
	Element       datatypes.JSON `gorm:"not null" json:"element"`
	SourceAssetID *int64         `json:"source_asset_id,omitempty"`
	ZIndex        int            `gorm:"not null;default:0" json:"z_index"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (AssetWhiteboardElement) TableName() string {
	return "asset_whiteboard_elements"
}

// Category course-level content category assets can be filed under
type Category struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID int64  `gorm:"not null;index" json:"course_id"`
	Title    string `gorm:"type:varchar(255);not null" json:"title"`
}

func (Category) TableName() string {
	return "categories"
}

// AssetCategory asset-category link
type AssetCategory struct {
	AssetID    int64 `gorm:"primaryKey" json:"asset_id"`
	CategoryID int64 `gorm:"primaryKey" json:"category_id"`
}

func (AssetCategory) TableName() string {
	return "asset_categories"
}

// Activity append-only points/activity ledger row. The core only writes
// these; reporting reads them elsewhere.
type Activity struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID     int64     `gorm:"not null;index" json:"course_id"`
	UserID       int64     `gorm:"not null;index" json:"user_id"`
	ActivityType string    `gorm:"type:varchar(50);not null" json:"activity_type"`
	ObjectType   string    `gorm:"type:varchar(50);not null" json:"object_type"`
	ObjectID     int64     `gorm:"not null" json:"object_id"`
	AssetID      *int64    `json:"asset_id,omitempty"`
	ActorID      *int64    `json:"actor_id,omitempty"`
	ReciprocalID *int64    `json:"reciprocal_id,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Activity) TableName() string {
	return "activities"
}
