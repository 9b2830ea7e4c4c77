// Package selection tracks a press-drag-release pointer gesture and turns it
// into a normalized screen rectangle. It knows nothing about any UI toolkit;
// overlay backends feed it pointer events.
package selection

import (
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	// ErrIncomplete is returned by Tracker.Result before the gesture has been released.
	ErrIncomplete = errors.New("selection gesture not completed")
	// ErrCancelled is returned by overlays closed before a gesture completed.
	ErrCancelled = errors.New("selection cancelled")
)

// Point is a position in virtual-screen coordinates, origin at the top-left.
type Point struct {
	X float64
	Y float64
}

// Rectangle is a normalized selection: X1 <= X2 and Y1 <= Y2.
type Rectangle struct {
	X1, Y1 float64
	X2, Y2 float64
}

// NewRectangle normalizes two opposite corners into a Rectangle.
func NewRectangle(a, b Point) Rectangle {
	return Rectangle{
		X1: math.Min(a.X, b.X),
		Y1: math.Min(a.Y, b.Y),
		X2: math.Max(a.X, b.X),
		Y2: math.Max(a.Y, b.Y),
	}
}

// Empty reports whether the rectangle has no area.
func (r Rectangle) Empty() bool {
	return r.X2 <= r.X1 || r.Y2 <= r.Y1
}

// Pixels snaps the rectangle onto the integer pixel grid. Each corner is
// rounded on its own so a click without drag always maps to an empty rectangle.
func (r Rectangle) Pixels() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X1)), int(math.Round(r.Y1)),
		int(math.Round(r.X2)), int(math.Round(r.Y2)),
	)
}

func (r Rectangle) String() string {
	return fmt.Sprintf("(%.0f,%.0f)-(%.0f,%.0f)", r.X1, r.Y1, r.X2, r.Y2)
}

// State of the gesture.
type State int

const (
	Idle State = iota
	Dragging
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Tracker is the gesture state machine. Each input event is one transition;
// events that do not apply to the current state are ignored. Tracker is not
// safe for concurrent use: backends deliver events from their UI goroutine.
type Tracker struct {
	state   State
	anchor  Point
	current Point
	result  Rectangle
}

// NewTracker returns a tracker in the Idle state.
func NewTracker() *Tracker {
	return &Tracker{}
}

// State returns the current gesture state.
func (t *Tracker) State() State { return t.state }

// Press records the anchor corner. Idle -> Dragging.
func (t *Tracker) Press(p Point) bool {
	if t.state != Idle {
		return false
	}
	t.anchor = p
	t.current = p
	t.state = Dragging
	return true
}

// Move updates the live corner while dragging. Dragging -> Dragging.
// It commits nothing; Outline exposes the corner for visual feedback.
func (t *Tracker) Move(p Point) bool {
	if t.state != Dragging {
		return false
	}
	t.current = p
	return true
}

// Release fixes the final rectangle. Dragging -> Completed.
func (t *Tracker) Release(p Point) bool {
	if t.state != Dragging {
		return false
	}
	t.current = p
	t.result = NewRectangle(t.anchor, p)
	t.state = Completed
	return true
}

// Outline returns the rectangle currently being dragged, for drawing.
func (t *Tracker) Outline() (Rectangle, bool) {
	switch t.state {
	case Dragging:
		return NewRectangle(t.anchor, t.current), true
	case Completed:
		return t.result, true
	default:
		return Rectangle{}, false
	}
}

// Result returns the final rectangle once the gesture is Completed.
func (t *Tracker) Result() (Rectangle, error) {
	if t.state != Completed {
		return Rectangle{}, fmt.Errorf("%w: state is %s", ErrIncomplete, t.state)
	}
	return t.result, nil
}
