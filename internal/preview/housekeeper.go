package preview

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"whiteboard-backend/internal/jobs"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/storage"
)

// BoardSource board lookups the housekeeper renders from.
type BoardSource interface {
	FindByID(id int64, includeDeleted bool) (*model.Whiteboard, error)
	FindTeachingViewer(courseID int64) (int64, error)
	SetPreviewURLs(id int64, imageURL, thumbnailURL string) error
}

// ElementSource ordered element reads for rendering.
type ElementSource interface {
	FindByWhiteboard(whiteboardID int64) ([]model.WhiteboardElement, error)
}

// Renderer turns a board's elements into PNGs: full size for the board
// view, reduced for the list card.
type Renderer interface {
	Render(ctx context.Context, elements []model.WhiteboardElement) ([]byte, error)
	RenderThumbnail(ctx context.Context, elements []model.WhiteboardElement) ([]byte, error)
}

// Uploader object storage writes.
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Locker cluster-wide mutual exclusion so only one instance renders.
// WithLock runs fn while holding the lock; it returns false without
// calling fn when another instance holds it.
type Locker interface {
	WithLock(ctx context.Context, fn func() error) (bool, error)
}

// Heartbeater records that a housekeeper cycle completed, for the
// liveness probe.
type Heartbeater interface {
	HousekeeperHeartbeat() error
}

// Housekeeper background preview regenerator. Each cycle drains the
// dirty set and renders every flagged board, one at a time. A failed
// board is logged and skipped; it does not fail the cycle.
type Housekeeper struct {
	dirty     *DirtySet
	boards    BoardSource
	elements  ElementSource
	renderer  Renderer
	uploader  Uploader
	lock      Locker
	heartbeat Heartbeater
	interval  time.Duration
}

// NewHousekeeper Housekeeper constructor
func NewHousekeeper(dirty *DirtySet, boards BoardSource, elements ElementSource, renderer Renderer, uploader Uploader, lock Locker, heartbeat Heartbeater, interval time.Duration) *Housekeeper {
	return &Housekeeper{
		dirty:     dirty,
		boards:    boards,
		elements:  elements,
		renderer:  renderer,
		uploader:  uploader,
		lock:      lock,
		heartbeat: heartbeat,
		interval:  interval,
	}
}

// Run blocks until ctx is cancelled, executing one cycle per interval.
func (h *Housekeeper) Run(ctx context.Context) {
	jobs.RunForever(ctx, "PreviewHousekeeper", h.interval, h.Cycle)
}

// Cycle one housekeeper pass. The advisory lock makes this safe to run
// on every instance; only the holder drains and renders. The drain must
// stay inside the critical section so a non-holder leaves the dirty set
// intact for the holder.
func (h *Housekeeper) Cycle(ctx context.Context) error {
	_, err := h.lock.WithLock(ctx, func() error {
		ids := h.dirty.Drain()
		for _, id := range ids {
			if err := h.regenerate(ctx, id); err != nil {
				log.Printf("[PreviewHousekeeper] preview for whiteboard %d failed: %v", id, err)
			}
		}

		if err := h.heartbeat.HousekeeperHeartbeat(); err != nil {
			log.Printf("[PreviewHousekeeper] heartbeat failed: %v", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func (h *Housekeeper) regenerate(ctx context.Context, whiteboardID int64) error {
	wb, err := h.boards.FindByID(whiteboardID, true)
	if err != nil {
		return err
	}
	if wb.DeletedAt != nil {
		// Deleted between mark and render; previews freeze as-is.
		return nil
	}

	viewerID, err := h.boards.FindTeachingViewer(wb.CourseID)
	if err != nil {
		return err
	}
	if viewerID == 0 {
		log.Printf("[PreviewHousekeeper] course %d has no teaching member, skipping whiteboard %d", wb.CourseID, wb.ID)
		return nil
	}

	elements, err := h.elements.FindByWhiteboard(wb.ID)
	if err != nil {
		return err
	}

	png, err := h.renderer.Render(ctx, elements)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	thumb, err := h.renderer.RenderThumbnail(ctx, elements)
	if err != nil {
		return fmt.Errorf("render thumbnail: %w", err)
	}

	// Fresh filenames per render so stale CDN copies never resurface.
	name := uuid.NewString()
	imageKey := storage.PreviewKey(wb.CourseID, model.ObjectTypeWhiteboard, name+".png")
	thumbKey := storage.PreviewKey(wb.CourseID, model.ObjectTypeWhiteboard, name+"_thumb.png")

	imageURL, err := h.uploader.Put(ctx, imageKey, png, "image/png")
	if err != nil {
		return fmt.Errorf("upload image: %w", err)
	}
	thumbURL, err := h.uploader.Put(ctx, thumbKey, thumb, "image/png")
	if err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}

	return h.boards.SetPreviewURLs(wb.ID, imageURL, thumbURL)
}
