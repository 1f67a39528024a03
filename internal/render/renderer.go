package render

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/model"
)

// Renderer invokes the external raster renderer as a black-box process:
// element list in a temp file, raster out at a path we choose.
type Renderer struct {
	cfg config.RendererConfig
}

// NewRenderer Renderer constructor
func NewRenderer(cfg config.RendererConfig) *Renderer {
	return &Renderer{cfg: cfg}
}

// Render serializes the element set, runs the renderer, and returns the
// raster bytes. The renderer owns layout and rasterization; we only
// ferry files.
func (r *Renderer) Render(ctx context.Context, elements []model.WhiteboardElement) ([]byte, error) {
	return r.run(ctx, elements)
}

// RenderThumbnail renders the same element set capped at the configured
// thumbnail width.
func (r *Renderer) RenderThumbnail(ctx context.Context, elements []model.WhiteboardElement) ([]byte, error) {
	return r.run(ctx, elements, "--max-width", strconv.Itoa(r.cfg.ThumbnailWidth))
}

func (r *Renderer) run(ctx context.Context, elements []model.WhiteboardElement, extraArgs ...string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "whiteboard-render-")
	if err != nil {
		return nil, fmt.Errorf("render temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	elementsPath := filepath.Join(dir, uuid.NewString()+".json")
	outputPath := filepath.Join(dir, uuid.NewString()+".png")

	payload, err := json.Marshal(elements)
	if err != nil {
		return nil, fmt.Errorf("render serialize elements: %w", err)
	}
	if err := os.WriteFile(elementsPath, payload, 0o600); err != nil {
		return nil, fmt.Errorf("render write elements: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	args := append([]string{elementsPath, outputPath}, extraArgs...)
	cmd := exec.CommandContext(ctx, r.cfg.Binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("renderer failed: %w (output: %s)", err, string(out))
	}

	raster, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("render read output: %w", err)
	}
	return raster, nil
}
