package page

import (
	"context"
	"log/slog"

	"github.com/zarlcorp/zlogin/internal/dom"
	"github.com/zarlcorp/zlogin/internal/transport"
)

// Fetcher loads frame documents.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, referrer string) (*transport.Response, error)
}

// FrameLimits bounds frame loading.
type FrameLimits struct {
	Depth int // nesting depth below the top window
	Total int // frames per tree
}

// DefaultFrameLimits are used when Load is given zero limits.
var DefaultFrameLimits = FrameLimits{Depth: 3, Total: 32}

// Window shows a document and its frames. All form submissions in the tree
// navigate through the top window's navigator.
type Window struct {
	doc    *Document
	parent *Window
	frames []*Window
	closed bool
	nav    dom.Navigator
}

var _ dom.Window = (*Window)(nil)

// NewWindow returns a top window showing doc. nav receives submissions.
func NewWindow(doc *Document, nav dom.Navigator) *Window {
	w := &Window{doc: doc, nav: nav}
	if doc != nil {
		doc.win = w
	}
	return w
}

// AddFrame attaches a frame showing doc.
func (w *Window) AddFrame(doc *Document) *Window {
	f := &Window{doc: doc, parent: w, nav: w.nav}
	if doc != nil {
		doc.win = f
	}
	w.frames = append(w.frames, f)
	return f
}

func (w *Window) Document() dom.Document {
	if w.doc == nil {
		return nil
	}
	return w.doc
}

// Page returns the concrete document.
func (w *Window) Page() *Document { return w.doc }

func (w *Window) Frames() []dom.Window {
	out := make([]dom.Window, len(w.frames))
	for i, f := range w.frames {
		out[i] = f
	}
	return out
}

func (w *Window) Closed() bool { return w.closed }
func (w *Window) IsTop() bool  { return w.parent == nil }

// Close closes w and its frames.
func (w *Window) Close() {
	w.closed = true
	for _, f := range w.frames {
		f.Close()
	}
}

// LoadFrames fetches the frames of w's document, and theirs, within
// limits. Frames that fail to load are logged and left out.
func (w *Window) LoadFrames(ctx context.Context, f Fetcher, limits FrameLimits, log *slog.Logger) {
	if limits.Depth <= 0 && limits.Total <= 0 {
		limits = DefaultFrameLimits
	}
	if log == nil {
		log = slog.Default()
	}
	budget := limits.Total
	w.loadFrames(ctx, f, limits.Depth, &budget, log)
}

func (w *Window) loadFrames(ctx context.Context, f Fetcher, depth int, budget *int, log *slog.Logger) {
	if depth <= 0 || w.doc == nil {
		return
	}

	for _, src := range w.doc.FrameSources() {
		if *budget <= 0 || ctx.Err() != nil {
			return
		}
		*budget--

		resp, err := f.Fetch(ctx, src.String(), w.doc.url.String())
		if err != nil {
			log.Warn("skip frame", "src", src.String(), "err", err)
			continue
		}
		doc, err := Parse(resp.URL, resp.Body, resp.ContentType)
		if err != nil {
			log.Warn("skip frame", "src", src.String(), "err", err)
			continue
		}

		w.AddFrame(doc).loadFrames(ctx, f, depth-1, budget, log)
	}
}
