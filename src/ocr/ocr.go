// Package ocr turns a preprocessed image into ordered text fragments.
package ocr

import (
	"context"
	"image"
	"sort"
	"strings"
)

// Fragment is one piece of recognized text as emitted by the engine.
type Fragment struct {
	Bounds     image.Rectangle `json:"bounds"`
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
}

// Result is the ordered sequence of fragments, in engine emission order.
type Result []Fragment

// Texts returns the fragment texts in order.
func (r Result) Texts() []string {
	texts := make([]string, len(r))
	for i, f := range r {
		texts[i] = f.Text
	}
	return texts
}

// Payload joins every fragment text with a newline. An empty result yields "".
func (r Result) Payload() string {
	return strings.Join(r.Texts(), "\n")
}

// SortReadingOrder returns a copy ordered top-to-bottom, then left-to-right.
// Fragments whose vertical extents overlap by more than half of the shorter
// one are treated as the same line.
func (r Result) SortReadingOrder() Result {
	out := make(Result, len(r))
	copy(out, r)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Bounds, out[j].Bounds
		if sameLine(a, b) {
			return a.Min.X < b.Min.X
		}
		return a.Min.Y < b.Min.Y
	})
	return out
}

func sameLine(a, b image.Rectangle) bool {
	top := max(a.Min.Y, b.Min.Y)
	bottom := min(a.Max.Y, b.Max.Y)
	overlap := bottom - top
	shorter := min(a.Dy(), b.Dy())
	return shorter > 0 && overlap*2 > shorter
}

// Recognizer runs detection and recognition over a whole image file.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (Result, error)
}
