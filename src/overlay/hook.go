package overlay

import (
	"context"
	"errors"
	"log"

	gohook "github.com/robotn/gohook"

	"snip-ocr/src/selection"
)

// hookSelector tracks the gesture through a global input hook. It is a
// diagnostic mode: no surface is drawn and underlying windows still receive
// the drag, so the window backend is the one to use for real snips.
type hookSelector struct{}

func (hookSelector) Select(ctx context.Context) (selection.Rectangle, error) {
	log.Printf("OVERLAY: hook backend is diagnostic only; no surface is shown and input is not blocked")
	log.Printf("OVERLAY: starting global pointer hook")
	evChan := gohook.Start()
	if evChan == nil {
		return selection.Rectangle{}, errors.New("failed to start input hook")
	}
	defer gohook.End()

	tr := selection.NewTracker()
	for {
		select {
		case <-ctx.Done():
			return selection.Rectangle{}, ctx.Err()
		case ev, ok := <-evChan:
			if !ok {
				return selection.Rectangle{}, selection.ErrCancelled
			}
			if r, done, err := feedHookEvent(tr, ev); done {
				return r, err
			}
		}
	}
}

// feedHookEvent applies one hook event to the tracker and reports whether
// the gesture ended. gohook names follow its own enum, not libuiohook's:
// MouseDown is a press, MouseHold is a release and MouseUp is the trailing
// click libuiohook emits only for a press and release without motion.
func feedHookEvent(tr *selection.Tracker, ev gohook.Event) (selection.Rectangle, bool, error) {
	p := selection.Point{X: float64(ev.X), Y: float64(ev.Y)}
	left := gohook.MouseMap["left"]

	switch ev.Kind {
	case gohook.MouseDown:
		if ev.Button == left {
			tr.Press(p)
		}
	case gohook.MouseDrag, gohook.MouseMove:
		tr.Move(p)
	case gohook.MouseHold:
		if ev.Button == left && tr.Release(p) {
			r, err := tr.Result()
			return r, true, err
		}
	case gohook.KeyDown:
		if ev.Keycode == gohook.Keycode["esc"] {
			return selection.Rectangle{}, true, selection.ErrCancelled
		}
	}
	return selection.Rectangle{}, false, nil
}
