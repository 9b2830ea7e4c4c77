package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"snip-ocr/src/config"
	"snip-ocr/src/notification"
	"snip-ocr/src/ocr"
	"snip-ocr/src/overlay"
	"snip-ocr/src/preprocess"
	"snip-ocr/src/runtimeinit"
	"snip-ocr/src/screenshot"
	"snip-ocr/src/session"
	"snip-ocr/src/singleinstance"
)

// deps is everything run needs beyond configuration; tests swap it out.
type deps struct {
	options   session.Options
	showError func(title, message string)
	guardPort int
}

func newDeps(cfg *config.Config, stdout io.Writer) deps {
	selector := overlay.NewSelector(cfg)
	capturer := screenshot.NewCapturer(cfg.CaptureDir, cfg.OverlaySettle, cfg.FlushSettle)
	var recognizer ocr.Recognizer = ocr.NewTesseract(cfg.Language, cfg.TessdataPrefix)

	d := deps{
		options: session.Options{
			SelectRegion:  selector.Select,
			Capture:       capturer.Capture,
			Preprocess:    preprocess.Grayscale,
			Recognize:     recognizer.Recognize,
			Target:        session.ClipboardTarget{Stdout: stdout},
			SortFragments: cfg.SortFragments,
			Stdout:        stdout,
		},
		guardPort: cfg.GuardPort,
	}
	if cfg.ShowErrorDialog {
		d.showError = notification.ShowBlockingError
	}
	return d
}

func main() {
	enableDPIAwareness()

	// The overlay toolkit expects to own the main OS thread.
	runtime.LockOSThread()

	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logDisplayConfiguration()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, newDeps(cfg, os.Stdout), os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, d deps, stderr io.Writer) int {
	guard, err := singleinstance.Acquire(ctx, d.guardPort)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer guard.Close()

	log.Printf("Starting capture session")
	result, err := session.Execute(ctx, d.options)
	if err != nil {
		if errors.Is(err, session.ErrSelectionCancelled) {
			log.Printf("Selection cancelled")
			fmt.Fprintln(stderr, "Selection cancelled.")
			return 1
		}

		fmt.Fprintf(stderr, "Error: %v\n", err)
		var stageErr *session.StageError
		if errors.As(err, &stageErr) {
			fmt.Fprint(stderr, stageErr.Trace())
		}
		log.Printf("Session failed: %v", err)
		if d.showError != nil {
			d.showError("snip-ocr", err.Error())
		}
		return 1
	}

	log.Printf("Session finished: %d fragments, %d characters from %s",
		len(result.Fragments), len(result.Text), result.CapturePath)
	return 0
}
