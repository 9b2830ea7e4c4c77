package screenshot

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// Grabber copies screen pixels into memory.
type Grabber interface {
	Grab(bounds image.Rectangle) (*image.RGBA, error)
}

// ScreenGrabber grabs from the live display.
type ScreenGrabber struct{}

func (ScreenGrabber) Grab(bounds image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region %v: %w", bounds, err)
	}
	return img, nil
}

// Capture captures the entire primary display together with its bounds in
// virtual-screen coordinates.
func Capture() (*image.RGBA, image.Rectangle, error) {
	bounds, err := GetDisplayBounds()
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, bounds, fmt.Errorf("failed to capture display: %w", err)
	}
	return img, bounds, nil
}

// GetDisplayBounds returns the bounds of the primary display
func GetDisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	return screenshot.GetDisplayBounds(0), nil
}
