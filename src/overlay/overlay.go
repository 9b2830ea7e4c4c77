package overlay

import (
	"context"

	"snip-ocr/src/config"
	"snip-ocr/src/selection"
)

// Selector runs one selection gesture and returns the normalized rectangle.
// The call blocks and must be made from the main goroutine: the window
// backend owns the UI event loop for its whole duration. The overlay is torn
// down before Select returns, on success and on error alike.
type Selector interface {
	Select(ctx context.Context) (selection.Rectangle, error)
}

// NewSelector returns the selector for the configured backend.
func NewSelector(cfg *config.Config) Selector {
	if cfg != nil && cfg.OverlayBackend == config.BackendHook {
		return &hookSelector{}
	}
	alpha := 0.3
	if cfg != nil {
		alpha = cfg.OverlayAlpha
	}
	return &windowSelector{alpha: alpha}
}
