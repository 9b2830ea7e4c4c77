package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"snip-ocr/src/clipboard"
	"snip-ocr/src/config"
	"snip-ocr/src/logutil"
	"snip-ocr/src/ocr"
	"snip-ocr/src/preprocess"
	"snip-ocr/src/runtimeinit"
	"snip-ocr/src/session"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath   string
	language   string
	jsonOutput bool
	copyText   bool
	verbose    bool
}

// app carries the process streams and the recognizer factory so the command
// can run in-process under test.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	newRecognizer   func(cfg *config.Config) session.RecognizeFunc
	initClipboard   func() error
	copyToClipboard func(text string) error
	now             func() time.Time
}

func defaultApp() *app {
	return &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,

		newRecognizer: func(cfg *config.Config) session.RecognizeFunc {
			return ocr.NewTesseract(cfg.Language, cfg.TessdataPrefix).Recognize
		},
		initClipboard:   clipboard.Init,
		copyToClipboard: clipboard.Write,
		now:             time.Now,
	}
}

func main() {
	a := defaultApp()
	if err := a.runWithArgs(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"ocr-file"}
	}

	args = normalizeLegacyArgs(args)

	opts := &cliOptions{}
	cmd := a.newRootCmd(opts)
	cmd.SetArgs(args[1:])
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	return cmd.Execute()
}

func (a *app) newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ocr-file",
		Short:         "Run local OCR on a PNG and print the recognized text",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWithOptions(cmd.Context(), *opts)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.language, "lang", "", "Tesseract language, overrides OCR_LANGUAGE")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&opts.copyText, "copy", false, "Also copy the recognized text to the clipboard")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (a *app) runWithOptions(ctx context.Context, opts cliOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// stdout carries only the result; progress goes to stderr with -v.
	progress := io.Discard
	setupLogging := logutil.Setup
	if opts.verbose {
		progress = a.stderr
		setupLogging = func(bool, string) {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.SetOutput(a.stderr)
		}
	}

	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:   config.LoadOptions{LanguageOverride: opts.language},
		SetupLogging:  setupLogging,
		InitClipboard: a.initClipboard,
		SkipClipboard: !opts.copyText,
	})
	if err != nil {
		return err
	}
	if opts.verbose {
		fmt.Fprintf(a.stderr, "[verbose] Language=%s Tessdata=%q CaptureDir=%s\n",
			cfg.Language, cfg.TessdataPrefix, cfg.CaptureDir)
	}

	imageData, err := a.readInput(opts.filePath, opts.verbose)
	if err != nil {
		return err
	}
	if err := validateImage(imageData); err != nil {
		return err
	}
	if opts.verbose {
		fmt.Fprintf(a.stderr, "[verbose] Read %d bytes, PNG validation passed\n", len(imageData))
	}

	sourcePath, err := a.materialize(opts.filePath, imageData, cfg.CaptureDir)
	if err != nil {
		return err
	}

	target := &collectTarget{}
	if opts.copyText {
		target.copy = a.copyToClipboard
	}

	startTime := a.now()
	result, err := session.Process(ctx, sourcePath, session.Options{
		Preprocess:    preprocess.Grayscale,
		Recognize:     a.newRecognizer(cfg),
		Target:        target,
		SortFragments: cfg.SortFragments,
		Stdout:        progress,
	})
	elapsed := a.now().Sub(startTime)
	if err != nil {
		if opts.verbose {
			fmt.Fprintf(a.stderr, "[verbose] OCR failed after %v: %v\n", elapsed, err)
		}
		return fmt.Errorf("OCR failed: %w", err)
	}

	if opts.verbose {
		fmt.Fprintf(a.stderr, "[verbose] OCR completed in %v, %d fragments, %d characters\n",
			elapsed, len(result.Fragments), len(result.Text))
	}

	return a.outputResult(result, opts.filePath, elapsed, opts.jsonOutput)
}

func (a *app) readInput(filePath string, verbose bool) ([]byte, error) {
	if filePath == "-" {
		if verbose {
			fmt.Fprintf(a.stderr, "[verbose] Reading image from stdin\n")
		}
		data, err := io.ReadAll(io.LimitReader(a.stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return data, nil
	}

	if verbose {
		fmt.Fprintf(a.stderr, "[verbose] Reading image from file: %s\n", filePath)
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return data, nil
}

// materialize returns a path on disk for the input. Files are used in place;
// stdin is stored in the capture directory so its derivative sits beside it.
func (a *app) materialize(filePath string, data []byte, captureDir string) (string, error) {
	if filePath != "-" {
		abs, err := filepath.Abs(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", filePath, err)
		}
		return abs, nil
	}

	if err := os.MkdirAll(captureDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create capture directory %s: %w", captureDir, err)
	}
	path := filepath.Join(captureDir, fmt.Sprintf("stdin_%d.png", a.now().Unix()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store stdin image: %w", err)
	}
	return path, nil
}

func validateImage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	return validatePNG(data)
}

func validatePNG(data []byte) error {
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	return nil
}

type collectTarget struct {
	text string
	copy func(text string) error
}

func (c *collectTarget) OnSuccess(text string) error {
	c.text = text
	if c.copy != nil {
		return c.copy(text)
	}
	return nil
}

type OCRResult struct {
	Text       string         `json:"text"`
	Source     string         `json:"source"`
	Simplified string         `json:"simplified"`
	Fragments  []ocr.Fragment `json:"fragments"`
	Timestamp  string         `json:"timestamp"`
	Duration   float64        `json:"duration_seconds"`
	CharCount  int            `json:"character_count"`
}

func (a *app) outputResult(result session.Result, sourcePath string, elapsed time.Duration, jsonOutput bool) error {
	if !jsonOutput {
		fmt.Fprint(a.stdout, result.Text)
		if result.Text != "" && !strings.HasSuffix(result.Text, "\n") {
			fmt.Fprintln(a.stdout)
		}
		return nil
	}

	fragments := []ocr.Fragment(result.Fragments)
	if fragments == nil {
		fragments = []ocr.Fragment{}
	}
	out := OCRResult{
		Text:       result.Text,
		Source:     sourcePath,
		Simplified: result.SimplifiedPath,
		Fragments:  fragments,
		Timestamp:  a.now().UTC().Format(time.RFC3339),
		Duration:   elapsed.Seconds(),
		CharCount:  len([]rune(result.Text)),
	}

	encoder := json.NewEncoder(a.stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "lang", "json", "copy", "verbose"} {
			single := "-" + name
			if arg == single {
				normalized[i] = "-" + single
				break
			}
			if strings.HasPrefix(arg, single+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}
