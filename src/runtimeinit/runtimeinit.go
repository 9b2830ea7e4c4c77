package runtimeinit

import (
	"fmt"
	"log"

	"snip-ocr/src/clipboard"
	"snip-ocr/src/config"
	"snip-ocr/src/logutil"
)

type Options struct {
	LoadOptions config.LoadOptions
	// SetupLogging defaults to logutil.Setup.
	SetupLogging func(enabled bool, dir string)
	// InitClipboard defaults to clipboard.Init.
	InitClipboard func() error
	SkipClipboard bool
}

// Bootstrap loads configuration, wires logging and checks the clipboard is
// reachable before any UI is shown.
func Bootstrap(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	setup := opts.SetupLogging
	if setup == nil {
		setup = logutil.Setup
	}
	setup(cfg.EnableFileLogging, cfg.DataDir)

	if cfg.CaptureDir == "" {
		return nil, fmt.Errorf("CAPTURE_DIR resolved to an empty path")
	}
	if cfg.Language == "" {
		return nil, fmt.Errorf("OCR_LANGUAGE resolved to an empty value")
	}

	if !opts.SkipClipboard {
		initClipboard := opts.InitClipboard
		if initClipboard == nil {
			initClipboard = clipboard.Init
		}
		if err := initClipboard(); err != nil {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	}

	log.Printf("Configuration: capture_dir=%s language=%s backend=%s settle=%v flush=%v sort=%v",
		cfg.CaptureDir, cfg.Language, cfg.OverlayBackend, cfg.OverlaySettle, cfg.FlushSettle, cfg.SortFragments)
	return cfg, nil
}
