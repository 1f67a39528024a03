package service

import (
	"context"
	"log"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"

	"whiteboard-backend/internal/apperror"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/queue"
)

// ElementStore persistence surface the pipeline writes through.
type ElementStore interface {
	FindByWhiteboard(whiteboardID int64) ([]model.WhiteboardElement, error)
	FindByUUID(whiteboardID int64, uuid string) (*model.WhiteboardElement, error)
	NextZIndex(whiteboardID int64) (int, error)
	Create(whiteboardID int64, uuid string, assetID *int64, payload datatypes.JSON, zIndex int) (*model.WhiteboardElement, error)
	Update(whiteboardID int64, uuid string, assetID *int64, payload datatypes.JSON) (*model.WhiteboardElement, error)
	DeleteAll(whiteboardID int64, uuids []string) error
	Reorder(whiteboardID int64, uuids []string, direction model.ReorderDirection) ([]model.WhiteboardElement, error)
}

// WhiteboardReader the aggregate lookups the pipeline authorizes against.
type WhiteboardReader interface {
	FindByID(id int64, includeDeleted bool) (*model.Whiteboard, error)
	RoleInCourse(userID, courseID int64) (model.CourseRole, error)
	IsCollaborator(whiteboardID, userID int64) (bool, error)
}

// AssetReader asset-association lookups for activity crediting.
type AssetReader interface {
	UserOwnsAsset(assetID, userID int64) (bool, error)
	OwnerIDs(assetID int64) ([]int64, error)
	LinkUser(assetID, userID int64) error
}

// ActivityRecorder fire-and-forget ledger writer.
type ActivityRecorder interface {
	Record(activityType model.ActivityType, courseID, userID int64, objectType string, objectID int64, assetID, actorID, reciprocalID *int64) (int64, error)
}

// SessionToucher refreshes connection liveness on accepted mutations.
type SessionToucher interface {
	Touch(socketID string) error
}

// DirtyMarker schedules preview regeneration.
type DirtyMarker interface {
	Mark(whiteboardID int64)
}

// Broadcaster fans accepted mutations out to the board's room,
// excluding the originating connection.
type Broadcaster interface {
	BroadcastUpsert(whiteboardID int64, exceptSocket string, elements []model.WhiteboardElement)
	BroadcastDelete(whiteboardID int64, exceptSocket string, uuids []string)
	BroadcastReorder(whiteboardID int64, exceptSocket string, direction model.ReorderDirection, elements []model.WhiteboardElement)
}

// Pipeline the single mutation entry point. Both the HTTP handlers and
// the websocket handler enqueue transactions; only the queue worker
// calls Process, so every accepted mutation is serialized.
type Pipeline struct {
	elements    ElementStore
	whiteboards WhiteboardReader
	assets      AssetReader
	activities  ActivityRecorder
	sessions    SessionToucher
	dirty       DirtyMarker
	broadcaster Broadcaster
	validate    *validator.Validate
}

// NewPipeline Pipeline constructor
func NewPipeline(elements ElementStore, whiteboards WhiteboardReader, assets AssetReader, activities ActivityRecorder, sessions SessionToucher, dirty DirtyMarker, broadcaster Broadcaster) *Pipeline {
	return &Pipeline{
		elements:    elements,
		whiteboards: whiteboards,
		assets:      assets,
		activities:  activities,
		sessions:    sessions,
		dirty:       dirty,
		broadcaster: broadcaster,
		validate:    validator.New(),
	}
}

// precheckRequest shape checked synchronously before enqueue.
type precheckRequest struct {
	WhiteboardID int64  `validate:"required,gt=0"`
	UserID       int64  `validate:"required,gt=0"`
	Kind         string `validate:"required"`
}

// Precheck runs the cheap, caller-visible part of validation before a
// transaction is enqueued: structural rules and authorization. Errors
// here surface synchronously as 400/403/404; the worker never has to
// signal back to a caller that is already gone.
func (p *Pipeline) Precheck(tx *queue.Transaction) error {
	if err := p.validate.Struct(precheckRequest{
		WhiteboardID: tx.WhiteboardID,
		UserID:       tx.UserID,
		Kind:         string(tx.Kind),
	}); err != nil {
		return apperror.ValidationFailed("transaction", "malformed mutation request")
	}

	switch tx.Kind {
	case queue.KindUpsert:
		if len(tx.Elements) == 0 {
			return apperror.ValidationFailed("elements", "element batch is empty")
		}
		for _, el := range tx.Elements {
			if len(el.Element) == 0 {
				return apperror.ValidationFailed("element", "element payload is required")
			}
			if model.PayloadType(el.Element) == "" {
				return apperror.ValidationFailed("element", "element type is required")
			}
			if tx.UpdateOnly && el.UUID == "" {
				return apperror.ValidationFailed("uuid", "uuid is required on update")
			}
		}
	case queue.KindDelete:
		if len(tx.UUIDs) == 0 {
			return apperror.ValidationFailed("uuids", "uuid batch is empty")
		}
	case queue.KindReorder:
		if len(tx.UUIDs) == 0 {
			return apperror.ValidationFailed("uuids", "uuid batch is empty")
		}
		if !tx.Direction.Valid() {
			return apperror.ValidationFailed("direction", "unknown reorder direction")
		}
	default:
		return apperror.ValidationFailed("kind", "unknown transaction kind")
	}

	_, err := p.authorize(tx)
	return err
}

// Process runs one transaction to completion. Called only by the queue
// worker, one transaction at a time.
func (p *Pipeline) Process(ctx context.Context, tx *queue.Transaction) error {
	wb, err := p.authorize(tx)
	if err != nil {
		return err
	}

	switch tx.Kind {
	case queue.KindUpsert:
		return p.processUpsert(wb, tx)
	case queue.KindDelete:
		return p.processDelete(tx)
	case queue.KindReorder:
		return p.processReorder(tx)
	}
	return apperror.ValidationFailed("kind", "unknown transaction kind")
}

// authorize loads the board and applies the all-or-nothing batch rule:
// the caller must be a collaborator or hold a teaching/admin role in
// the board's course. A soft-deleted board rejects every mutation.
func (p *Pipeline) authorize(tx *queue.Transaction) (*model.Whiteboard, error) {
	wb, err := p.whiteboards.FindByID(tx.WhiteboardID, true)
	if err != nil {
		return nil, err
	}
	if wb.DeletedAt != nil {
		return nil, apperror.ReadOnly("whiteboard", wb.ID)
	}

	role, err := p.whiteboards.RoleInCourse(tx.UserID, wb.CourseID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		// Not enrolled: do not leak existence across courses.
		return nil, apperror.NotFound("whiteboard", wb.ID)
	}
	if role.Teaching() {
		return wb, nil
	}

	member, err := p.whiteboards.IsCollaborator(wb.ID, tx.UserID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperror.Forbidden("you are not a collaborator on this whiteboard")
	}
	return wb, nil
}

func (p *Pipeline) processUpsert(wb *model.Whiteboard, tx *queue.Transaction) error {
	accepted := make([]model.WhiteboardElement, 0, len(tx.Elements))

	var failed error
	for _, el := range tx.Elements {
		applied, err := p.applyElement(wb, tx, el)
		if err != nil {
			failed = err
			break
		}
		if applied != nil {
			accepted = append(accepted, *applied)
		}
	}

	if len(accepted) == 0 {
		// Everything filtered or the first element failed: no write
		// happened, so no preview invalidation and no broadcast.
		return failed
	}

	// A failure mid-batch still leaves the earlier elements persisted;
	// they broadcast and invalidate previews so clients stay consistent
	// with the rows that exist.
	p.finishAccepted(tx)
	p.broadcaster.BroadcastUpsert(tx.WhiteboardID, tx.SocketID, accepted)
	return failed
}

// applyElement one element of an upsert batch. A nil, nil return means
// the element was filtered, not written.
func (p *Pipeline) applyElement(wb *model.Whiteboard, tx *queue.Transaction, el queue.ElementMutation) (*model.WhiteboardElement, error) {
	// Interactive typing produces transient empty text elements;
	// they are dropped from the batch, not an error.
	if model.IsBlankText(el.Element) {
		return nil, nil
	}
	if model.PayloadType(el.Element) == "" {
		return nil, apperror.ValidationFailed("element", "element type is required")
	}

	var existing *model.WhiteboardElement
	if el.UUID != "" {
		var err error
		existing, err = p.elements.FindByUUID(tx.WhiteboardID, el.UUID)
		if err != nil {
			return nil, err
		}
	}

	if existing != nil {
		return p.elements.Update(tx.WhiteboardID, el.UUID, el.AssetID, el.Element)
	}

	if tx.UpdateOnly {
		// Stale client state must not resurrect deleted elements.
		return nil, apperror.NotFound("whiteboard element", el.UUID)
	}

	next, err := p.elements.NextZIndex(tx.WhiteboardID)
	if err != nil {
		return nil, err
	}
	created, err := p.elements.Create(tx.WhiteboardID, el.UUID, el.AssetID, el.Element, next)
	if err != nil {
		return nil, err
	}

	if el.AssetID != nil {
		p.creditAssetUse(wb, tx.UserID, *el.AssetID, created.ID)
	}
	return created, nil
}

func (p *Pipeline) processDelete(tx *queue.Transaction) error {
	if err := p.elements.DeleteAll(tx.WhiteboardID, tx.UUIDs); err != nil {
		return err
	}

	p.finishAccepted(tx)
	p.broadcaster.BroadcastDelete(tx.WhiteboardID, tx.SocketID, tx.UUIDs)
	return nil
}

func (p *Pipeline) processReorder(tx *queue.Transaction) error {
	ordered, err := p.elements.Reorder(tx.WhiteboardID, tx.UUIDs, tx.Direction)
	if err != nil {
		return err
	}

	p.finishAccepted(tx)
	p.broadcaster.BroadcastReorder(tx.WhiteboardID, tx.SocketID, tx.Direction, ordered)
	return nil
}

// finishAccepted common tail for accepted batches: schedule preview
// regeneration and refresh the acting connection's liveness.
func (p *Pipeline) finishAccepted(tx *queue.Transaction) {
	p.dirty.Mark(tx.WhiteboardID)
	if tx.SocketID != "" {
		if err := p.sessions.Touch(tx.SocketID); err != nil {
			log.Printf("[Pipeline] session touch failed for %s: %v", tx.SocketID, err)
		}
	}
}

// creditAssetUse records the write-once activity pair for embedding a
// library asset the actor does not already own: one crediting event for
// the actor, one reciprocal event per existing co-owner. Ledger writes
// are fire-and-forget; failures are logged, never fatal to the batch.
func (p *Pipeline) creditAssetUse(wb *model.Whiteboard, userID, assetID, elementID int64) {
	owns, err := p.assets.UserOwnsAsset(assetID, userID)
	if err != nil {
		log.Printf("[Pipeline] asset ownership check failed for asset %d: %v", assetID, err)
		return
	}
	if owns {
		// Re-adding an already-associated asset never re-fires.
		return
	}

	coOwners, err := p.assets.OwnerIDs(assetID)
	if err != nil {
		log.Printf("[Pipeline] asset owner lookup failed for asset %d: %v", assetID, err)
		return
	}

	activityID, err := p.activities.Record(model.ActivityAddAssetToWhiteboard,
		wb.CourseID, userID, model.ObjectTypeWhiteboardElement, elementID,
		&assetID, nil, nil)
	if err != nil {
		log.Printf("[Pipeline] activity record failed: %v", err)
		return
	}

	for _, ownerID := range coOwners {
		if _, err := p.activities.Record(model.ActivityGetAssetAddedToBoard,
			wb.CourseID, ownerID, model.ObjectTypeWhiteboardElement, elementID,
			&assetID, &userID, &activityID); err != nil {
			log.Printf("[Pipeline] reciprocal activity record failed: %v", err)
		}
	}

	if err := p.assets.LinkUser(assetID, userID); err != nil {
		log.Printf("[Pipeline] asset link failed: %v", err)
	}
}
