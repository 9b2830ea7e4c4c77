package overlay

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"

	"snip-ocr/src/screenshot"
	"snip-ocr/src/selection"
)

const appID = "io.snipocr.overlay"

var outlineColor = color.NRGBA{R: 255, A: 255}

// windowSelector shows a borderless full-screen fyne window painted with a
// washed-out grab of the display, so the user appears to draw on the screen.
type windowSelector struct {
	alpha float64
}

func (s *windowSelector) Select(ctx context.Context) (selection.Rectangle, error) {
	bg, bounds, err := screenshot.Capture()
	if err != nil {
		return selection.Rectangle{}, fmt.Errorf("failed to capture screen for overlay: %w", err)
	}
	log.Printf("OVERLAY: display bounds %v", bounds)

	a := app.NewWithID(appID)
	var w fyne.Window
	if drv, ok := a.Driver().(desktop.Driver); ok {
		w = drv.CreateSplashWindow()
	} else {
		w = a.NewWindow("Select Region")
	}
	w.SetPadded(false)
	w.SetFullScreen(true)

	surf := newSurface(wash(bg, s.alpha), bounds.Min)
	surf.scale = func() float32 { return w.Canvas().Scale() }

	var (
		done   bool
		result selection.Rectangle
		resErr = selection.ErrCancelled
		stop   = make(chan struct{})
	)
	// finish runs on the UI goroutine; the first call wins and tears down.
	finish := func(r selection.Rectangle, err error) {
		if done {
			return
		}
		done = true
		result, resErr = r, err
		close(stop)
		log.Printf("OVERLAY: teardown (err=%v)", err)
		w.Close()
		a.Quit()
	}

	surf.onComplete = func(r selection.Rectangle) { finish(r, nil) }
	w.SetContent(surf)
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			finish(selection.Rectangle{}, selection.ErrCancelled)
		}
	})
	w.SetOnClosed(func() { finish(selection.Rectangle{}, selection.ErrCancelled) })

	go func() {
		select {
		case <-ctx.Done():
			fyne.Do(func() { finish(selection.Rectangle{}, ctx.Err()) })
		case <-stop:
		}
	}()

	w.Show()
	w.RequestFocus()
	a.Run()

	if resErr != nil {
		return selection.Rectangle{}, resErr
	}
	return result, nil
}

// wash blends the grab with white so the overlay reads as semi-transparent.
func wash(img image.Image, alpha float64) image.Image {
	b := img.Bounds()
	white := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(img, white, image.Point{}, alpha)
}

// surface feeds pointer events into a selection.Tracker and draws the outline.
type surface struct {
	widget.BaseWidget

	tracker *selection.Tracker
	bg      *canvas.Image
	outline *canvas.Rectangle
	origin  image.Point
	last    fyne.Position

	scale      func() float32
	onComplete func(selection.Rectangle)
}

var (
	_ desktop.Mouseable  = (*surface)(nil)
	_ desktop.Hoverable  = (*surface)(nil)
	_ desktop.Cursorable = (*surface)(nil)
	_ fyne.Draggable     = (*surface)(nil)
)

func newSurface(bg image.Image, origin image.Point) *surface {
	s := &surface{tracker: selection.NewTracker(), origin: origin}
	s.bg = canvas.NewImageFromImage(bg)
	s.bg.FillMode = canvas.ImageFillStretch
	s.bg.ScaleMode = canvas.ImageScaleFastest
	s.outline = canvas.NewRectangle(color.Transparent)
	s.outline.StrokeColor = outlineColor
	s.outline.StrokeWidth = 1
	s.outline.Hide()
	s.ExtendBaseWidget(s)
	return s
}

func (s *surface) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(s.bg, container.NewWithoutLayout(s.outline)))
}

func (s *surface) Cursor() desktop.Cursor { return desktop.CrosshairCursor }

func (s *surface) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	s.last = ev.Position
	if s.tracker.Press(s.toScreen(ev.Position)) {
		s.redraw()
	}
}

func (s *surface) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	s.release(ev.Position)
}

func (s *surface) MouseIn(*desktop.MouseEvent) {}

func (s *surface) MouseMoved(ev *desktop.MouseEvent) { s.move(ev.Position) }

func (s *surface) MouseOut() {}

func (s *surface) Dragged(ev *fyne.DragEvent) { s.move(ev.Position) }

// DragEnd carries no position; the last seen pointer position is used.
func (s *surface) DragEnd() { s.release(s.last) }

func (s *surface) move(pos fyne.Position) {
	s.last = pos
	if s.tracker.Move(s.toScreen(pos)) {
		s.redraw()
	}
}

func (s *surface) release(pos fyne.Position) {
	if !s.tracker.Release(s.toScreen(pos)) {
		return
	}
	r, err := s.tracker.Result()
	if err != nil {
		return
	}
	if s.onComplete != nil {
		s.onComplete(r)
	}
}

func (s *surface) canvasScale() float32 {
	if s.scale == nil {
		return 1
	}
	if sc := s.scale(); sc > 0 {
		return sc
	}
	return 1
}

func (s *surface) toScreen(pos fyne.Position) selection.Point {
	sc := s.canvasScale()
	return selection.Point{
		X: float64(s.origin.X) + float64(pos.X*sc),
		Y: float64(s.origin.Y) + float64(pos.Y*sc),
	}
}

func (s *surface) toLocal(p selection.Point) fyne.Position {
	sc := s.canvasScale()
	return fyne.NewPos(float32(p.X-float64(s.origin.X))/sc, float32(p.Y-float64(s.origin.Y))/sc)
}

func (s *surface) redraw() {
	r, ok := s.tracker.Outline()
	if !ok {
		s.outline.Hide()
		return
	}
	topLeft := s.toLocal(selection.Point{X: r.X1, Y: r.Y1})
	bottomRight := s.toLocal(selection.Point{X: r.X2, Y: r.Y2})
	s.outline.Move(topLeft)
	s.outline.Resize(fyne.NewSize(bottomRight.X-topLeft.X, bottomRight.Y-topLeft.Y))
	s.outline.Show()
	s.outline.Refresh()
}
