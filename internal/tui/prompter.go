// Package tui implements zlogin's interactive prompts with Bubble Tea: the
// master password, login selection, confirmations and status lines.
package tui

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"sync"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/microcosm-cc/bluemonday"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zlogin/internal/session"
	"github.com/zarlcorp/zlogin/internal/store"
)

var accent = lipgloss.Color("#e0af68")

// runFunc runs a model to completion and returns its final state.
type runFunc func(ctx context.Context, m tea.Model) (tea.Model, error)

// Prompter shows one prompt at a time on a terminal. It implements
// session.UI and store.Unlocker.
type Prompter struct {
	mu     sync.Mutex
	in     io.Reader
	out    io.Writer
	run    runFunc
	clean  *bluemonday.Policy
	status *bool
}

var (
	_ session.UI     = (*Prompter)(nil)
	_ store.Unlocker = (*Prompter)(nil)
)

// New returns a prompter reading keys from in and drawing to out.
func New(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		in:    in,
		out:   out,
		clean: bluemonday.StrictPolicy(),
	}
	p.run = p.program
	return p
}

// Unlock asks for the master password, twice when creating the store.
func (p *Prompter) Unlock(ctx context.Context, create bool) (string, error) {
	final, err := p.show(ctx, newPasswordModel(create))
	if err != nil {
		return "", fmt.Errorf("%w: %w", store.ErrCanceled, err)
	}

	m := final.(passwordModel)
	if m.canceled || !m.done {
		return "", store.ErrCanceled
	}
	return m.password, nil
}

// Select asks the user to pick one of items.
func (p *Prompter) Select(ctx context.Context, title string, items []string) (int, error) {
	clean := make([]string, len(items))
	for i, it := range items {
		clean[i] = p.sanitize(it)
	}

	final, err := p.show(ctx, newSelectModel(p.sanitize(title), clean))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", session.ErrCanceled, err)
	}

	m := final.(selectModel)
	if m.canceled || m.chosen < 0 {
		return 0, session.ErrCanceled
	}
	return m.chosen, nil
}

// Confirm asks a yes/no question. A dismissed prompt is a no.
func (p *Prompter) Confirm(ctx context.Context, msg string) (bool, error) {
	final, err := p.show(ctx, newConfirmModel(p.sanitize(msg)))
	if err != nil {
		return false, fmt.Errorf("%w: %w", session.ErrCanceled, err)
	}

	m := final.(confirmModel)
	return m.yes && !m.canceled, nil
}

// Status prints whether the current page has logins when it changes.
func (p *Prompter) Status(found bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != nil && *p.status == found {
		return
	}
	p.status = &found

	if found {
		fmt.Fprintf(p.out, "  %s\n", zstyle.StatusOK.Render("● logins available"))
		return
	}
	fmt.Fprintf(p.out, "  %s\n", zstyle.MutedText.Render("○ no logins"))
}

// Notify prints a one-line banner.
func (p *Prompter) Notify(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "  %s %s\n", lipgloss.NewStyle().Foreground(accent).Render("›"), p.sanitize(msg))
}

func (p *Prompter) show(ctx context.Context, m tea.Model) (tea.Model, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.run(ctx, m)
}

func (p *Prompter) program(ctx context.Context, m tea.Model) (tea.Model, error) {
	prog := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)

	final, err := prog.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("run prompt: %w", err)
	}
	return final, nil
}

// sanitize strips markup and control characters from page-supplied text.
func (p *Prompter) sanitize(s string) string {
	s = html.UnescapeString(p.clean.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
