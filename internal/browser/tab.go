// Package browser provides a headless tab: it loads pages and their frames,
// owns the current window tree and turns navigations into HTTP requests.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/zarlcorp/zlogin/internal/dom"
	"github.com/zarlcorp/zlogin/internal/page"
	"github.com/zarlcorp/zlogin/internal/transport"
)

// ErrClosed is returned by navigations on a closed tab.
var ErrClosed = errors.New("tab closed")

// Loader sends page requests.
type Loader interface {
	page.Fetcher
	Send(ctx context.Context, req dom.Request) (*transport.Response, error)
}

// LoadFunc is called after a page and its frames finished loading.
type LoadFunc func(ctx context.Context, w dom.Window) error

// Option configures a Tab.
type Option func(*Tab)

// WithLogger sets the tab's logger.
func WithLogger(log *slog.Logger) Option {
	return func(t *Tab) { t.log = log }
}

// WithFrameLimits bounds frame loading.
func WithFrameLimits(l page.FrameLimits) Option {
	return func(t *Tab) { t.limits = l }
}

// WithOnLoad registers the load hook.
func WithOnLoad(fn LoadFunc) Option {
	return func(t *Tab) { t.onLoad = fn }
}

// Tab is a single browsing context. It is not safe for concurrent
// navigation.
type Tab struct {
	loader  Loader
	log     *slog.Logger
	limits  page.FrameLimits
	onLoad  LoadFunc
	win     *page.Window
	history []string
	closed  bool
}

var _ dom.Navigator = (*Tab)(nil)

// New returns an empty tab.
func New(loader Loader, opts ...Option) *Tab {
	t := &Tab{
		loader: loader,
		log:    slog.Default(),
		limits: page.DefaultFrameLimits,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// SetOnLoad replaces the load hook.
func (t *Tab) SetOnLoad(fn LoadFunc) {
	t.onLoad = fn
}

// Open loads rawURL as a new top-level page.
func (t *Tab) Open(ctx context.Context, rawURL string) error {
	if t.closed {
		return ErrClosed
	}

	resp, err := t.loader.Fetch(ctx, rawURL, t.referrer())
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if err := t.load(ctx, resp); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	return nil
}

// Navigate performs req and shows the response in the tab.
func (t *Tab) Navigate(ctx context.Context, req dom.Request) error {
	if t.closed {
		return ErrClosed
	}

	resp, err := t.loader.Send(ctx, req)
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := t.load(ctx, resp); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

// Window returns the current top window, or nil before the first load.
func (t *Tab) Window() *page.Window {
	return t.win
}

// History returns the URLs shown in the tab, oldest first.
func (t *Tab) History() []string {
	out := make([]string, len(t.history))
	copy(out, t.history)
	return out
}

// Close closes the current window tree. Later navigations fail.
func (t *Tab) Close() {
	t.closed = true
	if t.win != nil {
		t.win.Close()
	}
}

func (t *Tab) referrer() string {
	if t.win == nil {
		return ""
	}
	return t.win.Page().URL().String()
}

func (t *Tab) load(ctx context.Context, resp *transport.Response) error {
	if resp.Status >= http.StatusBadRequest {
		t.log.Warn("page load", "url", resp.URL.String(), "status", resp.Status)
	}

	doc, err := page.Parse(resp.URL, resp.Body, resp.ContentType)
	if err != nil {
		return err
	}

	// the old tree is gone before the new page is searched
	if t.win != nil {
		t.win.Close()
	}
	t.win = page.NewWindow(doc, t)
	t.history = append(t.history, resp.URL.String())
	t.log.Debug("page loaded", "url", resp.URL.String(), "status", resp.Status, "charset", doc.Charset())

	t.win.LoadFrames(ctx, t.loader, t.limits, t.log)

	if t.onLoad == nil {
		return nil
	}
	return t.onLoad(ctx, t.win)
}
