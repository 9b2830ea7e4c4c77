package clipboard

import (
	"errors"
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

// ErrWriteFailed is returned when the system clipboard rejects the text.
var ErrWriteFailed = errors.New("clipboard write failed")

var (
	initOnce sync.Once
	initErr  error
	writeMu  sync.Mutex

	systemInit  = clipboard.Init
	systemWrite = func(buf []byte) <-chan struct{} {
		return clipboard.Write(clipboard.FmtText, buf)
	}
)

// Init prepares the system clipboard. It is safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		initErr = systemInit()
	})
	if initErr != nil {
		return fmt.Errorf("clipboard unavailable: %w", initErr)
	}
	return nil
}

// Write replaces the clipboard content with text. An empty string is still
// written so the previous content does not survive a run.
func Write(text string) error {
	if err := Init(); err != nil {
		return err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	// x/clipboard signals a failed write with a nil change channel.
	if systemWrite([]byte(text)) == nil {
		return fmt.Errorf("%w (%d bytes)", ErrWriteFailed, len(text))
	}
	return nil
}
