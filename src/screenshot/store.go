package screenshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"snip-ocr/src/selection"
)

var (
	// ErrEmptyRegion is returned for selections with no pixel area, such as a click without drag.
	ErrEmptyRegion = errors.New("selected region is empty")
	// ErrNotPersisted is returned when the saved capture is missing after the write.
	ErrNotPersisted = errors.New("capture file not found after write")
)

const filePrefix = "screenshot_"

// Capturer grabs a selected rectangle and persists it as a PNG in Dir.
type Capturer struct {
	Dir string
	// SettleDelay lets the overlay finish disappearing before the grab.
	SettleDelay time.Duration
	// FlushDelay is waited after the write, before the existence check.
	FlushDelay time.Duration
	Grabber    Grabber

	now   func() time.Time
	sleep func(time.Duration)
}

// NewCapturer returns a Capturer that grabs from the live display.
func NewCapturer(dir string, settle, flush time.Duration) *Capturer {
	return &Capturer{Dir: dir, SettleDelay: settle, FlushDelay: flush, Grabber: ScreenGrabber{}}
}

// FileName is the capture file name for a run started at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("%s%d.png", filePrefix, t.Unix())
}

// Capture grabs rect and writes it under c.Dir, returning the absolute file path.
func (c *Capturer) Capture(ctx context.Context, rect selection.Rectangle) (string, error) {
	c.pause(ctx, c.SettleDelay)

	bounds := rect.Pixels()
	if bounds.Empty() {
		return "", fmt.Errorf("%w: %s", ErrEmptyRegion, rect)
	}

	grabber := c.Grabber
	if grabber == nil {
		grabber = ScreenGrabber{}
	}
	img, err := grabber.Grab(bounds)
	if err != nil {
		return "", err
	}
	log.Printf("Captured region %v (%dx%d)", bounds, img.Bounds().Dx(), img.Bounds().Dy())

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create capture directory %s: %w", c.Dir, err)
	}

	path, err := filepath.Abs(filepath.Join(c.Dir, FileName(c.clock())))
	if err != nil {
		return "", fmt.Errorf("failed to resolve capture path: %w", err)
	}
	if err := WritePNG(path, img); err != nil {
		return "", err
	}

	c.pause(ctx, c.FlushDelay)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotPersisted, path, err)
	}
	return path, nil
}

// WritePNG encodes img to path and syncs it to disk before returning.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func (c *Capturer) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// pause is a fixed-duration wait; a cancelled context cuts it short.
func (c *Capturer) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if c.sleep != nil {
		c.sleep(d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
