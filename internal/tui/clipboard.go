package tui

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrNoClipboard is returned when no clipboard tool is installed.
var ErrNoClipboard = errors.New("no clipboard: install xclip, xsel or wl-clipboard")

// clipboardWrite is replaced in tests.
var clipboardWrite = clipboard.WriteAll

// CopyToClipboard copies text to the system clipboard.
func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return ErrNoClipboard
	}
	if err := clipboardWrite(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}
