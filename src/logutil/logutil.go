package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const (
	LogFileName  = "snip_ocr.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
	maxLogLength = 100
)

// Setup enables file logging in dir with basic size-based rotation (10MB, max 3 files).
// When disabled, logs are discarded so stdout and stderr carry only user-facing output.
func Setup(enableFileLogging bool, dir string) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(io.Discard)
		return
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		log.SetOutput(io.Discard)
		return
	}
	w, err := newRotatingWriter(filepath.Join(dir, LogFileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(w)
}

type rotatingWriter struct {
	path string
	max  int64
	f    *os.File
}

func newRotatingWriter(path string) (*rotatingWriter, error) {
	w := &rotatingWriter{path: path, max: maxSizeBytes}
	w.rotateIfNeeded(0)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	w.f = f
	return w, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	// naive rotation check per write
	if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > w.max {
		_ = w.f.Close()
		w.rotateIfNeeded(int64(len(p)))
		nf, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}
		w.f = nf
	}
	return w.f.Write(p)
}

func (w *rotatingWriter) rotateIfNeeded(incoming int64) {
	// If base would exceed max size, rotate: .1, .2, .3 (oldest discarded)
	st, err := os.Stat(w.path)
	if err != nil || st.Size()+incoming <= w.max {
		return
	}
	_ = os.Remove(w.archiveName(maxArchives))
	for i := maxArchives - 1; i >= 1; i-- {
		_ = os.Rename(w.archiveName(i), w.archiveName(i+1))
	}
	_ = os.Rename(w.path, w.archiveName(1))
}

func (w *rotatingWriter) archiveName(n int) string { return fmt.Sprintf("%s.%d", w.path, n) }

// Sanitize makes recognized text safe for a single log line: newlines and
// tabs are escaped, other control characters replaced, and length capped.
func Sanitize(text string) string {
	runes := []rune(text)
	truncated := false
	if len(runes) > maxLogLength {
		runes = runes[:maxLogLength]
		truncated = true
	}

	var b strings.Builder
	for _, r := range runes {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}
