package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snip-ocr/src/clipboard"
	"snip-ocr/src/ocr"
	"snip-ocr/src/preprocess"
	"snip-ocr/src/screenshot"
	"snip-ocr/src/selection"
)

// gestureSelector replays a press/release pair through the state machine.
func gestureSelector(press, release selection.Point) RegionSelectorFunc {
	return func(ctx context.Context) (selection.Rectangle, error) {
		tr := selection.NewTracker()
		tr.Press(press)
		tr.Move(release)
		tr.Release(release)
		return tr.Result()
	}
}

type solidGrabber struct{}

func (solidGrabber) Grab(bounds image.Rectangle) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img, nil
}

type fakeRecognizer struct {
	calls  []string
	result ocr.Result
	err    error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, path string) (ocr.Result, error) {
	f.calls = append(f.calls, path)
	return f.result, f.err
}

type recordingTarget struct {
	calls    int
	received string
	err      error
}

func (r *recordingTarget) OnSuccess(text string) error {
	r.calls++
	r.received = text
	return r.err
}

func newOptions(dir string, sel RegionSelectorFunc, rec *fakeRecognizer, target *recordingTarget, stdout *bytes.Buffer) Options {
	capturer := screenshot.NewCapturer(dir, 0, 0)
	capturer.Grabber = solidGrabber{}
	return Options{
		SelectRegion: sel,
		Capture:      capturer.Capture,
		Preprocess:   preprocess.Grayscale,
		Recognize:    rec.Recognize,
		Target:       target,
		Stdout:       stdout,
	}
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestExecuteScenario(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "screenshots")
	rec := &fakeRecognizer{result: ocr.Result{
		{Text: "Hello", Confidence: 0.98, Bounds: image.Rect(0, 0, 50, 20)},
		{Text: "world", Confidence: 0.12, Bounds: image.Rect(0, 30, 50, 50)},
	}}
	target := &recordingTarget{}
	var stdout bytes.Buffer

	opts := newOptions(dir, gestureSelector(selection.Point{X: 100, Y: 100}, selection.Point{X: 300, Y: 200}), rec, target, &stdout)
	res, err := Execute(context.Background(), opts)
	require.NoError(t, err)

	w, h := imageSize(t, res.CapturePath)
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)

	gw, gh := imageSize(t, res.SimplifiedPath)
	assert.Equal(t, 200, gw)
	assert.Equal(t, 100, gh)
	assert.Equal(t, preprocess.DerivedPath(res.CapturePath), res.SimplifiedPath)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, res.SimplifiedPath, rec.calls[0])

	assert.Equal(t, 1, target.calls)
	assert.Equal(t, "Hello\nworld", target.received)
	assert.Equal(t, "Hello\nworld", res.Text)

	out := stdout.String()
	assert.Contains(t, out, "Screenshot saved to: "+res.CapturePath)
	assert.Contains(t, out, "Simplified image saved to: "+res.SimplifiedPath)
	assert.Contains(t, out, "Combined detected text:\nHello\nworld")
}

func TestExecuteEmptyRecognitionStillPublishes(t *testing.T) {
	rec := &fakeRecognizer{result: ocr.Result{}}
	target := &recordingTarget{}
	var stdout bytes.Buffer

	opts := newOptions(t.TempDir(), gestureSelector(selection.Point{X: 0, Y: 0}, selection.Point{X: 64, Y: 32}), rec, target, &stdout)
	res, err := Execute(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, target.calls, "empty payload is still written")
	assert.Equal(t, "", target.received)
	assert.Equal(t, "", res.Text)
}

func TestExecuteSortsFragmentsWhenAsked(t *testing.T) {
	rec := &fakeRecognizer{result: ocr.Result{
		{Text: "below", Bounds: image.Rect(0, 40, 40, 60)},
		{Text: "above", Bounds: image.Rect(0, 0, 40, 20)},
	}}
	target := &recordingTarget{}
	opts := newOptions(t.TempDir(), gestureSelector(selection.Point{X: 0, Y: 0}, selection.Point{X: 10, Y: 10}), rec, target, &bytes.Buffer{})
	opts.SortFragments = true

	_, err := Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "above\nbelow", target.received)
}

func TestExecuteUnwritableCaptureDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	rec := &fakeRecognizer{}
	target := &recordingTarget{}
	opts := newOptions(filepath.Join(blocker, "screenshots"), gestureSelector(selection.Point{X: 0, Y: 0}, selection.Point{X: 10, Y: 10}), rec, target, &bytes.Buffer{})

	_, err := Execute(context.Background(), opts)
	require.Error(t, err)

	stage, ok := StageOf(err)
	require.True(t, ok)
	assert.Equal(t, StageCapture, stage)
	assert.Empty(t, rec.calls, "recognizer must not run")
	assert.Zero(t, target.calls, "clipboard must not be written")
}

func TestExecuteDegenerateSelection(t *testing.T) {
	rec := &fakeRecognizer{}
	target := &recordingTarget{}
	p := selection.Point{X: 42, Y: 42}
	opts := newOptions(t.TempDir(), gestureSelector(p, p), rec, target, &bytes.Buffer{})

	_, err := Execute(context.Background(), opts)
	require.ErrorIs(t, err, screenshot.ErrEmptyRegion)

	stage, _ := StageOf(err)
	assert.Equal(t, StageCapture, stage)
	assert.Empty(t, rec.calls)
	assert.Zero(t, target.calls)
}

func TestExecuteSelectionCancelled(t *testing.T) {
	rec := &fakeRecognizer{}
	target := &recordingTarget{}
	sel := func(ctx context.Context) (selection.Rectangle, error) {
		return selection.Rectangle{}, ErrSelectionCancelled
	}
	captured := false
	opts := newOptions(t.TempDir(), sel, rec, target, &bytes.Buffer{})
	opts.Capture = func(ctx context.Context, rect selection.Rectangle) (string, error) {
		captured = true
		return "", nil
	}

	_, err := Execute(context.Background(), opts)
	require.ErrorIs(t, err, ErrSelectionCancelled)
	stage, _ := StageOf(err)
	assert.Equal(t, StageOverlay, stage)
	assert.False(t, captured)
}

func TestExecuteStageFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		mutate    func(*Options, *fakeRecognizer, *recordingTarget)
		wantStage Stage
		wantRecog int
		wantPub   int
	}{
		{
			name: "preprocess",
			mutate: func(o *Options, _ *fakeRecognizer, _ *recordingTarget) {
				o.Preprocess = func(string) (string, error) { return "", boom }
			},
			wantStage: StagePreprocess,
		},
		{
			name: "recognize",
			mutate: func(_ *Options, r *fakeRecognizer, _ *recordingTarget) {
				r.err = boom
			},
			wantStage: StageRecognize,
			wantRecog: 1,
		},
		{
			name: "clipboard",
			mutate: func(_ *Options, r *fakeRecognizer, tg *recordingTarget) {
				r.result = ocr.Result{{Text: "kept on stdout"}}
				tg.err = boom
			},
			wantStage: StageClipboard,
			wantRecog: 1,
			wantPub:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecognizer{}
			target := &recordingTarget{}
			var stdout bytes.Buffer
			opts := newOptions(t.TempDir(), gestureSelector(selection.Point{X: 0, Y: 0}, selection.Point{X: 8, Y: 8}), rec, target, &stdout)
			tt.mutate(&opts, rec, target)

			_, err := Execute(context.Background(), opts)
			require.ErrorIs(t, err, boom)

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.wantStage, se.Stage)
			assert.NotEmpty(t, se.Trace())
			assert.Len(t, rec.calls, tt.wantRecog)
			assert.Equal(t, tt.wantPub, target.calls)

			if tt.wantStage == StageClipboard {
				assert.Contains(t, stdout.String(), "kept on stdout")
			}
		})
	}
}

func TestExecuteRequiresStages(t *testing.T) {
	_, err := Execute(context.Background(), Options{})
	require.Error(t, err)

	_, err = Process(context.Background(), "x.png", Options{})
	require.Error(t, err)
}

func TestClipboardTargetFailureIsFatal(t *testing.T) {
	rec := &fakeRecognizer{result: ocr.Result{{Text: "lost"}}}
	var stdout bytes.Buffer
	opts := newOptions(t.TempDir(), gestureSelector(selection.Point{X: 0, Y: 0}, selection.Point{X: 8, Y: 8}), rec, &recordingTarget{}, &stdout)
	opts.Target = ClipboardTarget{
		Stdout: &stdout,
		Write:  func(string) error { return clipboard.ErrWriteFailed },
	}

	_, err := Execute(context.Background(), opts)
	require.ErrorIs(t, err, clipboard.ErrWriteFailed)
	stage, _ := StageOf(err)
	assert.Equal(t, StageClipboard, stage)
	assert.NotContains(t, stdout.String(), "Text copied to clipboard.")
}

func TestClipboardTargetSuccess(t *testing.T) {
	var stdout bytes.Buffer
	var written []string
	target := ClipboardTarget{
		Stdout: &stdout,
		Write:  func(text string) error { written = append(written, text); return nil },
	}

	require.NoError(t, target.OnSuccess("a\nb"))
	assert.Equal(t, []string{"a\nb"}, written)
	assert.Equal(t, "Text copied to clipboard.\n", stdout.String())
}

func TestStdoutTarget(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, StdoutTarget{Writer: &buf}.OnSuccess("a\nb"))
	assert.Equal(t, "a\nb", buf.String())
}

func TestStageErrorFormatting(t *testing.T) {
	err := newStageError(StageCapture, "failed to capture area", errors.New("no display"))
	assert.Equal(t, "capture: failed to capture area: no display", err.Error())

	bare := newStageError(StageOverlay, "no surface", nil)
	assert.Equal(t, "overlay: no surface", bare.Error())

	_, ok := StageOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestExecuteHonoursSettleDelay(t *testing.T) {
	dir := t.TempDir()
	capturer := screenshot.NewCapturer(dir, 20*time.Millisecond, 0)
	capturer.Grabber = solidGrabber{}
	rec := &fakeRecognizer{}
	target := &recordingTarget{}

	start := time.Now()
	_, err := Execute(context.Background(), Options{
		SelectRegion: gestureSelector(selection.Point{X: 0, Y: 0}, selection.Point{X: 4, Y: 4}),
		Capture:      capturer.Capture,
		Preprocess:   preprocess.Grayscale,
		Recognize:    rec.Recognize,
		Target:       target,
		Stdout:       &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
