package model

// CourseRole enrollment role
type CourseRole string

const (
	RoleAdmin      CourseRole = "ADMIN"
	RoleInstructor CourseRole = "INSTRUCTOR"
	RoleTA         CourseRole = "TA"
	RoleStudent    CourseRole = "STUDENT"
	RoleObserver   CourseRole = "OBSERVER"
)

func (r CourseRole) String() string {
	return string(r)
}

// Teaching reports whether the role can see and manage every whiteboard
// in its course, including soft-deleted ones.
func (r CourseRole) Teaching() bool {
	return r == RoleAdmin || r == RoleInstructor || r == RoleTA
}

// AssetType library asset discriminator
type AssetType string

const (
	AssetTypeWhiteboard AssetType = "WHITEBOARD"
	AssetTypeFile       AssetType = "FILE"
	AssetTypeLink       AssetType = "LINK"
)

func (a AssetType) String() string {
	return string(a)
}

// ActivityType ledger event taxonomy
type ActivityType string

const (
	ActivityAddAssetToWhiteboard ActivityType = "ADD_ASSET_TO_WHITEBOARD"
	ActivityGetAssetAddedToBoard ActivityType = "GET_ASSET_ADDED_TO_WHITEBOARD"
	ActivityExportWhiteboard     ActivityType = "EXPORT_WHITEBOARD"
)

func (a ActivityType) String() string {
	return string(a)
}

// ObjectType ledger object discriminator
const (
	ObjectTypeWhiteboard        = "whiteboard"
	ObjectTypeWhiteboardElement = "whiteboard_element"
)

// ReorderDirection z-index reorder moves
type ReorderDirection string

const (
	ReorderFront    ReorderDirection = "FRONT"
	ReorderBack     ReorderDirection = "BACK"
	ReorderForward  ReorderDirection = "FORWARD"
	ReorderBackward ReorderDirection = "BACKWARD"
)

func (d ReorderDirection) Valid() bool {
	switch d {
	case ReorderFront, ReorderBack, ReorderForward, ReorderBackward:
		return true
	}
	return false
}
