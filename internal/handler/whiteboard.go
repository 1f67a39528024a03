package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"whiteboard-backend/internal/apperror"
	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/queue"
	"whiteboard-backend/internal/service"
)

// WhiteboardHandler REST surface for boards and their elements.
// Element mutations are accepted here but applied by the queue worker;
// the handler returns 202 once a batch passes precheck.
type WhiteboardHandler struct {
	boards   *service.WhiteboardService
	pipeline *service.Pipeline
	queue    *queue.MutationQueue
}

// NewWhiteboardHandler WhiteboardHandler constructor
func NewWhiteboardHandler(boards *service.WhiteboardService, pipeline *service.Pipeline, q *queue.MutationQueue) *WhiteboardHandler {
	return &WhiteboardHandler{boards: boards, pipeline: pipeline, queue: q}
}

type boardRequest struct {
	Title   string  `json:"title"`
	UserIDs []int64 `json:"user_ids"`
}

type exportRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	CategoryIDs []int64 `json:"category_ids,omitempty"`
}

type elementBatchRequest struct {
	Elements []queue.ElementMutation `json:"elements"`
}

type uuidBatchRequest struct {
	UUIDs []string `json:"uuids"`
}

type reorderRequest struct {
	UUIDs     []string `json:"uuids"`
	Direction string   `json:"direction"`
}

// List GET /api/whiteboards
func (h *WhiteboardHandler) List(c *fiber.Ctx) error {
	actor := auth.ActorFromCtx(c)
	includeDeleted := c.QueryBool("include_deleted", false)

	boards, err := h.boards.List(actor, includeDeleted)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"whiteboards": boards})
}

// Get GET /api/whiteboards/:id
func (h *WhiteboardHandler) Get(c *fiber.Ctx) error {
	actor := auth.ActorFromCtx(c)
	id, err := boardID(c)
	if err != nil {
		return respondError(c, err)
	}

	if c.QueryBool("include_deleted", false) {
		wb, err := h.boards.Get(actor, id, true)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"whiteboard": wb})
	}

	snapshot, err := h.boards.GetSnapshot(actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snapshot)
}

// Create POST /api/whiteboards
func (h *WhiteboardHandler) Create(c *fiber.Ctx) error {
	actor := auth.ActorFromCtx(c)

	var req boardRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperror.ValidationFailed("body", "invalid request body"))
	}

	wb, err := h.boards.Create(actor, req.Title, req.UserIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"whiteboard": wb})
}

// Update PUT /api/whiteboards/:id
func (h *WhiteboardHandler) Update(c *fiber.Ctx) error {
	actor := auth.ActorFromCtx(c)
	id, err := boardID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req boardRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperror.ValidationFailed("body", "invalid request body"))
	}

	wb, err := h.boards.Update(actor, id, req.Title, req.UserIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"whiteboard": wb})
}

// Delete DELETE /api/whiteboards/:id
func (h *WhiteboardHandler) Delete(c *fiber.Ctx) error {
	actor := auth.ActorFromCtx(c)
	id, err := boardID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.boards.SoftDelete(actor, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Restore POST /api/whiteboards/:id/restore
func (h *WhiteboardHandler) Restore(c *fiber.Ctx) error {
	actor := auth.ActorFromCtx(c)
	id, err := boardID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.boards.Restore(actor, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Export POST /api/whiteboards/:id/export
func (h *WhiteboardHandler) Export(c *fiber.Ctx) error {
	actor := auth.ActorFromCtx(c)
	id, err := boardID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req exportRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperror.ValidationFailed("body", "invalid request body"))
	}

	asset, err := h.boards.ExportToAsset(actor, id, req.Title, req.Description, req.CategoryIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"asset": asset})
}

// UpsertElements POST /api/whiteboards/:id/elements
// Creates unknown uuids, updates known ones.
func (h *WhiteboardHandler) UpsertElements(c *fiber.Ctx) error {
	return h.enqueueElementBatch(c, false)
}

// UpdateElements PUT /api/whiteboards/:id/elements
// Updates only; a uuid with no existing row is rejected.
func (h *WhiteboardHandler) UpdateElements(c *fiber.Ctx) error {
	return h.enqueueElementBatch(c, true)
}

func (h *WhiteboardHandler) enqueueElementBatch(c *fiber.Ctx, updateOnly bool) error {
	actor := auth.ActorFromCtx(c)
	id, err := boardID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req elementBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperror.ValidationFailed("body", "invalid request body"))
	}

	tx := &queue.Transaction{
		Kind:         queue.KindUpsert,
		WhiteboardID: id,
		CourseID:     actor.CourseID,
		UserID:       actor.ID,
		SocketID:     originSocket(c),
		Elements:     req.Elements,
		UpdateOnly:   updateOnly,
	}
	return h.enqueue(c, tx)
}

// DeleteElements DELETE /api/whiteboards/:id/elements
func (h *WhiteboardHandler) DeleteElements(c *fiber.Ctx) error {
	actor := auth.ActorFromCtx(c)
	id, err := boardID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req uuidBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperror.ValidationFailed("body", "invalid request body"))
	}

	tx := &queue.Transaction{
		Kind:         queue.KindDelete,
		WhiteboardID: id,
		CourseID:     actor.CourseID,
		UserID:       actor.ID,
		SocketID:     originSocket(c),
		UUIDs:        req.UUIDs,
	}
	return h.enqueue(c, tx)
}

// ReorderElements POST /api/whiteboards/:id/elements/reorder
func (h *WhiteboardHandler) ReorderElements(c *fiber.Ctx) error {
	actor := auth.ActorFromCtx(c)
	id, err := boardID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req reorderRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperror.ValidationFailed("body", "invalid request body"))
	}

	tx := &queue.Transaction{
		Kind:         queue.KindReorder,
		WhiteboardID: id,
		CourseID:     actor.CourseID,
		UserID:       actor.ID,
		SocketID:     originSocket(c),
		UUIDs:        req.UUIDs,
		Direction:    model.ReorderDirection(req.Direction),
	}
	return h.enqueue(c, tx)
}

// enqueue prechecks synchronously, then hands the batch to the worker.
// 202 means accepted for processing, not applied.
func (h *WhiteboardHandler) enqueue(c *fiber.Ctx, tx *queue.Transaction) error {
	if err := h.pipeline.Precheck(tx); err != nil {
		return respondError(c, err)
	}
	if !h.queue.Enqueue(tx) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "server is shutting down",
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": true})
}

func boardID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "whiteboard id must be a positive integer")
	}
	return id, nil
}

// originSocket lets REST mutations carry the caller's live socket id so
// the resulting broadcast skips their own connection. Empty when the
// caller has no socket open.
func originSocket(c *fiber.Ctx) string {
	return c.Get("X-Socket-ID")
}
