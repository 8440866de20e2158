// Package session runs searches and logins for one browsing session.
//
// A Session owns the candidate registry for its top window. Searches are
// stamped with a generation; a search only commits its results if no newer
// top-level search started while it ran.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zarlcorp/zlogin/internal/dispatch"
	"github.com/zarlcorp/zlogin/internal/dom"
	"github.com/zarlcorp/zlogin/internal/prefs"
	"github.com/zarlcorp/zlogin/internal/registry"
	"github.com/zarlcorp/zlogin/internal/search"
)

var (
	// ErrCanceled is returned when the user dismisses a prompt.
	ErrCanceled = errors.New("login canceled")
	// ErrNoLogins is returned by Login when no candidate was found.
	ErrNoLogins = errors.New("no logins found")
)

// UI is the prompt and status surface.
type UI interface {
	// Select asks the user to pick one of items. It returns ErrCanceled
	// when dismissed.
	Select(ctx context.Context, title string, items []string) (int, error)
	Confirm(ctx context.Context, msg string) (bool, error)
	// Status reports whether the current page has logins.
	Status(found bool)
	Notify(msg string)
}

// Config holds a session's collaborators.
type Config struct {
	Store     search.Store
	Prefs     *prefs.Manager
	Navigator dom.Navigator
	Policy    dispatch.SecurityPolicy
	UI        UI
	Log       *slog.Logger
}

// LoginOptions tunes a single login.
type LoginOptions struct {
	// Index selects a candidate directly when HasIndex is set and the index
	// is in range.
	Index    int
	HasIndex bool
	// SkipSearch uses the current candidates even when pages are not
	// searched on load.
	SkipSearch bool
}

// Session is the per-window login service.
type Session struct {
	prefs      *prefs.Manager
	searcher   *search.Searcher
	dispatcher *dispatch.Dispatcher
	ui         UI
	log        *slog.Logger

	mu             sync.Mutex
	gen            uint64
	reg            registry.Registry
	top            dom.Window
	failedBookmark bool
	inLogin        bool
}

// New returns a session and subscribes it to preference changes.
func New(cfg Config) (*Session, error) {
	if cfg.Store == nil || cfg.Prefs == nil || cfg.UI == nil {
		return nil, errors.New("new session: store, prefs and ui are required")
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	s := &Session{
		prefs:      cfg.Prefs,
		searcher:   search.New(cfg.Store, log),
		dispatcher: dispatch.New(cfg.Navigator, cfg.Policy, log),
		ui:         cfg.UI,
		log:        log,
	}

	for name, fn := range s.prefUpdates() {
		if err := cfg.Prefs.Watch(name, fn); err != nil {
			return nil, fmt.Errorf("new session: %w", err)
		}
	}
	return s, nil
}

// Candidates returns a copy of the current registry entries.
func (s *Session) Candidates() []registry.FoundLogin {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg.Prune()
	return s.reg.All()
}

// ShowFormIndex reports whether candidates span more than one form.
func (s *Session) ShowFormIndex() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.ShowFormIndex()
}

// Search looks for logins in win. For a top window the registry is
// replaced; for a frame only that frame's entries, and those of closed
// windows, are replaced.
func (s *Session) Search(ctx context.Context, win dom.Window) error {
	if !dom.Live(win) {
		return nil
	}

	p := s.prefs.Current()
	opts := search.Options{
		SkipDuplicateActionForms: p.SkipDuplicateActionForms,
		Highlight:                highlight(p),
	}

	top := win.IsTop()
	s.mu.Lock()
	if top {
		s.gen++
		s.top = win
	}
	gen := s.gen
	s.mu.Unlock()

	found, err := s.searcher.Search(ctx, win, opts)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.log.Debug("discard superseded search", "generation", gen)
		return nil
	}

	if err != nil {
		if top {
			s.reg.Reset()
		} else {
			s.reg.PruneWindow(win)
		}
		n := s.reg.Len()
		s.mu.Unlock()
		s.ui.Status(n > 0)
		return err
	}

	if top {
		s.reg.Replace(found)
	} else {
		s.reg.PruneWindow(win)
		for _, f := range found {
			s.reg.Append(f)
		}
	}
	n := s.reg.Len()
	s.mu.Unlock()

	s.reportFound(p, win, n)
	return nil
}

// OnLoad handles a finished page or frame load: it searches when enabled,
// then runs an automatic or bookmark login for top windows.
func (s *Session) OnLoad(ctx context.Context, win dom.Window) error {
	if !dom.Live(win) {
		return nil
	}
	p := s.prefs.Current()

	if p.SearchLoginsOnload {
		if err := s.Search(ctx, win); err != nil {
			return fmt.Errorf("on load: %w", err)
		}
	} else {
		if win.IsTop() {
			s.mu.Lock()
			s.top = win
			s.mu.Unlock()
		}
		s.ui.Status(true)
	}

	if !win.IsTop() {
		return nil
	}

	s.mu.Lock()
	inLogin := s.inLogin
	n := s.reg.Len()
	s.mu.Unlock()

	// pages loaded by our own submission never log in again
	if inLogin {
		return nil
	}

	loc := win.Document().URL()
	bm := ParseBookmark(loc.Fragment, p.BookmarkHash)

	if p.SearchLoginsOnload && p.AutoLogin && n > 0 &&
		!(p.SecureLoginBookmarks && bm.Match) &&
		!s.prefs.IsException(prefs.AutoLoginExceptions, dom.Origin(loc)) {
		if err := s.Login(ctx, win, LoginOptions{SkipSearch: true}); err != nil {
			return fmt.Errorf("auto login: %w", err)
		}
	}

	if !p.SecureLoginBookmarks {
		return nil
	}

	switch {
	case bm.Failed:
		s.mu.Lock()
		s.failedBookmark = true
		s.mu.Unlock()
	case bm.Match:
		if err := s.Login(ctx, win, LoginOptions{Index: bm.Index, HasIndex: bm.HasIndex}); err != nil {
			return fmt.Errorf("bookmark login: %w", err)
		}
	}
	return nil
}

// Login selects a candidate and logs in with it. The registry is emptied
// when Login returns unless a newer search replaced it meanwhile.
func (s *Session) Login(ctx context.Context, win dom.Window, opts LoginOptions) error {
	p := s.prefs.Current()

	if win == nil {
		s.mu.Lock()
		win = s.top
		s.mu.Unlock()
	}

	if !p.SearchLoginsOnload && !opts.SkipSearch {
		if err := s.Search(ctx, win); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	s.mu.Lock()
	s.reg.Prune()
	entries := s.reg.All()
	show := s.reg.ShowFormIndex()
	gen := s.gen
	failed := s.failedBookmark
	s.mu.Unlock()

	defer s.finish(gen, entries)

	if len(entries) == 0 {
		return ErrNoLogins
	}

	idx, err := s.selectIndex(ctx, entries, show, opts)
	if err != nil {
		return err
	}

	sel := entries[idx]
	if !sel.Live() {
		s.log.Debug("selected login window closed")
		return nil
	}

	if failed {
		ok, err := s.ui.Confirm(ctx, "Log in to "+sel.ActionURI+"?")
		if err != nil {
			return fmt.Errorf("login: confirm: %w", err)
		}
		if !ok {
			return ErrCanceled
		}
	}

	s.mu.Lock()
	s.failedBookmark = false
	s.inLogin = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inLogin = false
		s.mu.Unlock()
	}()

	origin := dom.Origin(sel.Form.Window.Document().URL())
	dopts := dispatch.Options{
		Protected:  p.JavascriptProtection && !s.prefs.IsException(prefs.ExceptionList, origin),
		AutoSubmit: p.AutoSubmitForm,
	}

	if err := s.dispatcher.Login(ctx, sel, dopts); err != nil {
		s.log.Error("login failed", "origin", origin, "err", err)
		return err
	}

	s.log.Info("logged in", "origin", origin, "protected", dopts.Protected)
	return nil
}

func (s *Session) selectIndex(ctx context.Context, entries []registry.FoundLogin, show bool, opts LoginOptions) (int, error) {
	if len(entries) == 1 {
		return 0, nil
	}
	if opts.HasIndex && opts.Index >= 0 && opts.Index < len(entries) {
		return opts.Index, nil
	}

	title := "Select a login"
	if show {
		title += "  (form index)"
	}

	items := make([]string, len(entries))
	for i, e := range entries {
		items[i] = e.Credential.Username
		if items[i] == "" {
			items[i] = "(no username)"
		}
		if show {
			items[i] += fmt.Sprintf("  (%d)", e.Form.Index)
		}
	}

	i, err := s.ui.Select(ctx, title, items)
	if err != nil {
		if errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled) {
			return 0, ErrCanceled
		}
		return 0, fmt.Errorf("select login: %w", err)
	}
	if i < 0 || i >= len(entries) {
		return 0, fmt.Errorf("select login: index %d out of range", i)
	}
	return i, nil
}

// finish empties the registry unless a newer search owns it, and drops the
// local copies of the credentials.
func (s *Session) finish(gen uint64, entries []registry.FoundLogin) {
	s.mu.Lock()
	if s.gen == gen {
		s.reg.Reset()
	}
	s.mu.Unlock()

	for i := range entries {
		entries[i].Credential.Erase()
	}
}

func (s *Session) reportFound(p prefs.Prefs, win dom.Window, n int) {
	s.ui.Status(n > 0)
	if n > 0 && p.ShowDoorhangerLogin {
		s.ui.Notify(fmt.Sprintf("%d login(s) found on %s", n, dom.Origin(win.Document().URL())))
	}
}

func highlight(p prefs.Prefs) search.Highlight {
	return search.Highlight{
		Color:  p.HighlightColor,
		Width:  p.HighlightOutlineWidth,
		Style:  p.HighlightOutlineStyle,
		Radius: p.HighlightOutlineRadius,
		Custom: p.HighlightStyle,
	}
}
