package service

import (
	"log"
	"strings"

	"github.com/go-playground/validator/v10"

	"whiteboard-backend/internal/apperror"
	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/model"
)

// BoardStore full whiteboard aggregate persistence surface.
type BoardStore interface {
	WhiteboardReader
	ListByCourse(courseID int64, includeDeleted bool) ([]model.Whiteboard, error)
	Create(courseID int64, title string, userIDs []int64) (*model.Whiteboard, error)
	Update(id int64, title string, userIDs []int64) (*model.Whiteboard, error)
	SoftDelete(id int64) error
	Restore(id int64) error
}

// AssetCreator creates library assets from board exports.
type AssetCreator interface {
	CreateWhiteboardAsset(courseID int64, title string, description *string, ownerIDs, categoryIDs []int64, elements []model.WhiteboardElement) (*model.Asset, error)
}

// PresenceReader answers which users currently hold a live connection.
type PresenceReader interface {
	OnlineUserIDs(whiteboardID int64) (map[int64]bool, error)
}

// Collaborator user plus live-connection flag, as rendered in the
// board snapshot.
type Collaborator struct {
	model.User
	IsOnline bool `json:"is_online"`
}

// Snapshot full board state delivered on join: the board, its ordered
// elements and its collaborator roster with presence.
type Snapshot struct {
	Whiteboard  *model.Whiteboard         `json:"whiteboard"`
	Elements    []model.WhiteboardElement `json:"elements"`
	Users       []Collaborator            `json:"users"`
	OnlineCount int                       `json:"online_count"`
}

// createBoardRequest validated shape for Create and Update.
type createBoardRequest struct {
	Title   string  `validate:"required,max=255"`
	UserIDs []int64 `validate:"required,min=1,dive,gt=0"`
}

// exportRequest validated shape for ExportToAsset.
type exportRequest struct {
	Title string `validate:"required,max=255"`
}

// WhiteboardService aggregate-level operations: lifecycle, visibility
// and export. Element mutations go through the Pipeline instead.
type WhiteboardService struct {
	boards     BoardStore
	elements   ElementStore
	assets     AssetCreator
	activities ActivityRecorder
	presence   PresenceReader
	validate   *validator.Validate
}

// NewWhiteboardService WhiteboardService constructor
func NewWhiteboardService(boards BoardStore, elements ElementStore, assets AssetCreator, activities ActivityRecorder, presence PresenceReader) *WhiteboardService {
	return &WhiteboardService{
		boards:     boards,
		elements:   elements,
		assets:     assets,
		activities: activities,
		presence:   presence,
		validate:   validator.New(),
	}
}

// Get loads a board the actor may see. Boards in a different course and
// boards hidden from the actor both come back as NotFound so callers
// cannot probe for existence.
func (s *WhiteboardService) Get(actor *auth.Actor, id int64, includeDeleted bool) (*model.Whiteboard, error) {
	canSeeDeleted := includeDeleted && actor.CanViewDeleted()

	wb, err := s.boards.FindByID(id, canSeeDeleted)
	if err != nil {
		return nil, err
	}
	if wb.CourseID != actor.CourseID {
		return nil, apperror.NotFound("whiteboard", id)
	}
	if actor.CanViewDeleted() {
		return wb, nil
	}

	member, err := s.boards.IsCollaborator(wb.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperror.NotFound("whiteboard", id)
	}
	return wb, nil
}

// List boards in the actor's course. Teaching staff see every board,
// including soft-deleted ones when asked; everyone else sees only live
// boards they collaborate on.
func (s *WhiteboardService) List(actor *auth.Actor, includeDeleted bool) ([]model.Whiteboard, error) {
	canSeeDeleted := includeDeleted && actor.CanViewDeleted()

	boards, err := s.boards.ListByCourse(actor.CourseID, canSeeDeleted)
	if err != nil {
		return nil, err
	}
	if actor.CanViewDeleted() {
		return boards, nil
	}

	visible := make([]model.Whiteboard, 0, len(boards))
	for _, wb := range boards {
		member, err := s.boards.IsCollaborator(wb.ID, actor.ID)
		if err != nil {
			return nil, err
		}
		if member {
			visible = append(visible, wb)
		}
	}
	return visible, nil
}

// GetSnapshot the join payload: board, ordered elements, collaborators
// with presence and the distinct online count.
func (s *WhiteboardService) GetSnapshot(actor *auth.Actor, id int64) (*Snapshot, error) {
	wb, err := s.Get(actor, id, false)
	if err != nil {
		return nil, err
	}

	elements, err := s.elements.FindByWhiteboard(wb.ID)
	if err != nil {
		return nil, err
	}

	online, err := s.presence.OnlineUserIDs(wb.ID)
	if err != nil {
		return nil, err
	}

	users := make([]Collaborator, 0, len(wb.Users))
	for _, u := range wb.Users {
		users = append(users, Collaborator{User: u, IsOnline: online[u.ID]})
	}

	return &Snapshot{
		Whiteboard:  wb,
		Elements:    elements,
		Users:       users,
		OnlineCount: len(online),
	}, nil
}

// Create a board in the actor's course. The creator is always a
// collaborator even when omitted from the requested set.
func (s *WhiteboardService) Create(actor *auth.Actor, title string, userIDs []int64) (*model.Whiteboard, error) {
	title = strings.TrimSpace(title)
	userIDs = ensureMember(userIDs, actor.ID)

	if err := s.validate.Struct(createBoardRequest{Title: title, UserIDs: userIDs}); err != nil {
		return nil, apperror.ValidationFailed("whiteboard", "title and at least one collaborator are required")
	}
	if actor.IsObserver && !actor.CanViewDeleted() {
		return nil, apperror.Forbidden("observers cannot create whiteboards")
	}
	return s.boards.Create(actor.CourseID, title, userIDs)
}

// Update retitles a board and replaces its collaborator set.
func (s *WhiteboardService) Update(actor *auth.Actor, id int64, title string, userIDs []int64) (*model.Whiteboard, error) {
	title = strings.TrimSpace(title)
	if err := s.validate.Struct(createBoardRequest{Title: title, UserIDs: userIDs}); err != nil {
		return nil, apperror.ValidationFailed("whiteboard", "title and at least one collaborator are required")
	}

	wb, err := s.Get(actor, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditor(actor, wb); err != nil {
		return nil, err
	}
	return s.boards.Update(id, title, userIDs)
}

// SoftDelete hides a board and freezes its elements. Teaching staff
// only.
func (s *WhiteboardService) SoftDelete(actor *auth.Actor, id int64) error {
	wb, err := s.boards.FindByID(id, false)
	if err != nil {
		return err
	}
	if wb.CourseID != actor.CourseID {
		return apperror.NotFound("whiteboard", id)
	}
	if !actor.CanViewDeleted() {
		return apperror.Forbidden("only teaching staff can delete whiteboards")
	}
	return s.boards.SoftDelete(id)
}

// Restore reinstates a soft-deleted board. Teaching staff only.
func (s *WhiteboardService) Restore(actor *auth.Actor, id int64) error {
	wb, err := s.boards.FindByID(id, true)
	if err != nil {
		return err
	}
	if wb.CourseID != actor.CourseID {
		return apperror.NotFound("whiteboard", id)
	}
	if !actor.CanViewDeleted() {
		return apperror.Forbidden("only teaching staff can restore whiteboards")
	}
	return s.boards.Restore(id)
}

// ExportToAsset snapshots the board's current elements into a new
// library asset. The copies are frozen: later board edits never touch
// an exported asset. An empty board cannot be exported.
func (s *WhiteboardService) ExportToAsset(actor *auth.Actor, id int64, title string, description *string, categoryIDs []int64) (*model.Asset, error) {
	title = strings.TrimSpace(title)
	if err := s.validate.Struct(exportRequest{Title: title}); err != nil {
		return nil, apperror.ValidationFailed("title", "asset title is required")
	}

	wb, err := s.Get(actor, id, false)
	if err != nil {
		return nil, err
	}

	elements, err := s.elements.FindByWhiteboard(wb.ID)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, apperror.Empty("cannot export an empty whiteboard")
	}

	// Every current collaborator co-owns the exported asset.
	ownerIDs := make([]int64, 0, len(wb.Users))
	for _, u := range wb.Users {
		ownerIDs = append(ownerIDs, u.ID)
	}
	ownerIDs = ensureMember(ownerIDs, actor.ID)

	asset, err := s.assets.CreateWhiteboardAsset(wb.CourseID, title, description, ownerIDs, categoryIDs, elements)
	if err != nil {
		return nil, err
	}

	// Ledger write is best effort; the export itself stands.
	if _, err := s.activities.Record(model.ActivityExportWhiteboard,
		wb.CourseID, actor.ID, model.ObjectTypeWhiteboard, wb.ID,
		&asset.ID, nil, nil); err != nil {
		log.Printf("[WhiteboardService] export activity record failed: %v", err)
	}
	return asset, nil
}

// requireEditor collaborator or teaching staff may edit board metadata.
func (s *WhiteboardService) requireEditor(actor *auth.Actor, wb *model.Whiteboard) error {
	if actor.CanViewDeleted() {
		return nil
	}
	member, err := s.boards.IsCollaborator(wb.ID, actor.ID)
	if err != nil {
		return err
	}
	if !member {
		return apperror.Forbidden("you are not a collaborator on this whiteboard")
	}
	return nil
}

func ensureMember(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
