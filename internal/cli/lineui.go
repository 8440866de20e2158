package cli

import (
	"context"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/zarlcorp/zlogin/internal/session"
)

// LineUI prompts with plain lines of text. It serves when stdin is a pipe
// or a file rather than a terminal.
type LineUI struct {
	mu     sync.Mutex
	in     io.Reader
	out    io.Writer
	clean  *bluemonday.Policy
	status *bool
}

var _ session.UI = (*LineUI)(nil)

// NewLineUI returns a UI reading answers from in and writing prompts to out.
func NewLineUI(in io.Reader, out io.Writer) *LineUI {
	return &LineUI{in: in, out: out, clean: bluemonday.StrictPolicy()}
}

// Select prints a numbered list and reads the chosen number. End of
// input or an out-of-range answer cancels.
func (u *LineUI) Select(ctx context.Context, title string, items []string) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", session.ErrCanceled, err)
	}

	fmt.Fprintln(u.out, u.sanitize(title))
	for i, it := range items {
		fmt.Fprintf(u.out, "  %d) %s\n", i+1, u.sanitize(it))
	}
	fmt.Fprint(u.out, "> ")

	line, err := readLine(u.in)
	if err != nil {
		return 0, session.ErrCanceled
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(items) {
		return 0, session.ErrCanceled
	}
	return n - 1, nil
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (u *LineUI) Confirm(ctx context.Context, msg string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", session.ErrCanceled, err)
	}

	fmt.Fprintf(u.out, "%s [y/N] ", u.sanitize(msg))
	line, err := readLine(u.in)
	if err != nil {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Status prints whether the current page has logins when it changes.
func (u *LineUI) Status(found bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.status != nil && *u.status == found {
		return
	}
	u.status = &found

	if found {
		fmt.Fprintln(u.out, "logins available")
		return
	}
	fmt.Fprintln(u.out, "no logins")
}

// Notify prints msg on its own line.
func (u *LineUI) Notify(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	fmt.Fprintln(u.out, u.sanitize(msg))
}

func (u *LineUI) sanitize(s string) string {
	s = html.UnescapeString(u.clean.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
