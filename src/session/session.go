package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"snip-ocr/src/clipboard"
	"snip-ocr/src/logutil"
	"snip-ocr/src/ocr"
	"snip-ocr/src/selection"
)

type RegionSelectorFunc func(ctx context.Context) (selection.Rectangle, error)

type CaptureFunc func(ctx context.Context, rect selection.Rectangle) (string, error)

type PreprocessFunc func(path string) (string, error)

type RecognizeFunc func(ctx context.Context, imagePath string) (ocr.Result, error)

type ResultTarget interface {
	OnSuccess(text string) error
}

type Options struct {
	SelectRegion  RegionSelectorFunc
	Capture       CaptureFunc
	Preprocess    PreprocessFunc
	Recognize     RecognizeFunc
	Target        ResultTarget
	SortFragments bool
	// Stdout receives progress messages; os.Stdout when nil.
	Stdout io.Writer
}

type Result struct {
	Rectangle      selection.Rectangle
	CapturePath    string
	SimplifiedPath string
	Fragments      ocr.Result
	Text           string
}

// Execute runs one full pass: select, capture, preprocess, recognize, publish.
// Stages run strictly in order and the first failure stops the run.
func Execute(ctx context.Context, opts Options) (Result, error) {
	if opts.SelectRegion == nil {
		return Result{}, errors.New("SelectRegion is required")
	}
	if opts.Capture == nil {
		return Result{}, errors.New("Capture is required")
	}

	rect, err := opts.SelectRegion(ctx)
	if err != nil {
		if errors.Is(err, ErrSelectionCancelled) {
			return Result{}, newStageError(StageOverlay, "no region selected", err)
		}
		return Result{}, newStageError(StageOverlay, "failed to run selection overlay", err)
	}
	log.Printf("Selection completed: %s", rect)

	path, err := opts.Capture(ctx, rect)
	if err != nil {
		return Result{Rectangle: rect}, newStageError(StageCapture, "failed to capture area", err)
	}
	fmt.Fprintf(opts.stdout(), "Screenshot saved to: %s\n", path)

	res, err := Process(ctx, path, opts)
	res.Rectangle = rect
	return res, err
}

// Process runs the stages after capture on an existing image file.
func Process(ctx context.Context, path string, opts Options) (Result, error) {
	if opts.Preprocess == nil {
		return Result{}, errors.New("Preprocess is required")
	}
	if opts.Recognize == nil {
		return Result{}, errors.New("Recognize is required")
	}
	if opts.Target == nil {
		return Result{}, errors.New("Target is required")
	}
	out := opts.stdout()
	res := Result{CapturePath: path}

	fmt.Fprintf(out, "Reading words from: %s\n", path)
	simplified, err := opts.Preprocess(path)
	if err != nil {
		return res, newStageError(StagePreprocess, "failed to simplify image", err)
	}
	res.SimplifiedPath = simplified
	fmt.Fprintf(out, "Simplified image saved to: %s\n", simplified)

	fragments, err := opts.Recognize(ctx, simplified)
	if err != nil {
		return res, newStageError(StageRecognize, "failed to read words", err)
	}
	if opts.SortFragments {
		fragments = fragments.SortReadingOrder()
	}
	res.Fragments = fragments
	res.Text = fragments.Payload()
	log.Printf("Recognized %d fragments (%d chars): %q", len(fragments), len(res.Text), logutil.Sanitize(res.Text))

	fmt.Fprintf(out, "Combined detected text:\n%s\n", res.Text)

	if err := opts.Target.OnSuccess(res.Text); err != nil {
		return res, newStageError(StageClipboard, "failed to publish text", err)
	}
	return res, nil
}

func (o Options) stdout() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}

// ClipboardTarget replaces the system clipboard with the recognized text.
type ClipboardTarget struct {
	Stdout io.Writer
	// Write defaults to clipboard.Write.
	Write func(text string) error
}

func (t ClipboardTarget) OnSuccess(text string) error {
	write := t.Write
	if write == nil {
		write = clipboard.Write
	}
	if err := write(text); err != nil {
		return err
	}
	w := t.Stdout
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, "Text copied to clipboard.")
	return nil
}

// StdoutTarget prints the recognized text without touching the clipboard.
type StdoutTarget struct {
	Writer io.Writer
}

func (t StdoutTarget) OnSuccess(text string) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprint(w, text)
	return err
}
