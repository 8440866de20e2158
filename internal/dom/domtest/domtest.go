// Package domtest provides in-memory dom implementations for tests.
package domtest

import (
	"context"
	"net/url"
	"strings"

	"github.com/zarlcorp/zlogin/internal/dom"
)

// Element is a fake form control that records interactions.
type Element struct {
	N       string
	T       string
	Dis     bool
	V       string
	Chk     bool
	Sel     []string
	Style   string
	Clicks  int
	Focused bool
	Writes  int
	OnClick func(ctx context.Context) error
}

// Input returns an enabled element with the given name and type.
func Input(name, typ string) *Element {
	return &Element{N: name, T: typ}
}

// WithValue sets the element's value and returns it.
func (e *Element) WithValue(v string) *Element {
	e.V = v
	return e
}

// Checkbox returns a checkbox element.
func Checkbox(name, value string, checked bool) *Element {
	return &Element{N: name, T: "checkbox", V: value, Chk: checked}
}

func (e *Element) Name() string        { return e.N }
func (e *Element) Type() string        { return strings.ToLower(e.T) }
func (e *Element) Disabled() bool      { return e.Dis }
func (e *Element) Value() string       { return e.V }
func (e *Element) Checked() bool       { return e.Chk }
func (e *Element) Selected() []string  { return e.Sel }
func (e *Element) Focus()              { e.Focused = true }
func (e *Element) SetStyle(css string) { e.Style = css }

func (e *Element) SetValue(v string) {
	e.V = v
	e.Writes++
}

func (e *Element) Click(ctx context.Context) error {
	e.Clicks++
	if e.OnClick != nil {
		return e.OnClick(ctx)
	}
	return nil
}

// Form is a fake form.
type Form struct {
	Idx        int
	ActionAttr string
	MethodAttr string
	Els        []*Element
	Imgs       []*Element
	Submits    int
}

// NewForm returns a form at index idx holding els.
func NewForm(idx int, action string, els ...*Element) *Form {
	return &Form{Idx: idx, ActionAttr: action, Els: els}
}

func (f *Form) Index() int     { return f.Idx }
func (f *Form) Action() string { return f.ActionAttr }

func (f *Form) Method() string {
	if strings.EqualFold(f.MethodAttr, "post") {
		return "post"
	}
	return "get"
}

func (f *Form) Elements() []dom.Element {
	out := make([]dom.Element, len(f.Els))
	for i, e := range f.Els {
		out[i] = e
	}
	return out
}

func (f *Form) Images() []dom.Element {
	out := make([]dom.Element, len(f.Imgs))
	for i, e := range f.Imgs {
		out[i] = e
	}
	return out
}

func (f *Form) Submit(context.Context) error {
	f.Submits++
	return nil
}

// Document is a fake document.
type Document struct {
	Loc      *url.URL
	Base     string
	CS       string
	FormList []*Form
}

// NewDocument returns a UTF-8 document at rawURL holding forms.
func NewDocument(rawURL string, forms ...*Form) *Document {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return &Document{Loc: u, Base: rawURL, CS: "UTF-8", FormList: forms}
}

func (d *Document) URL() *url.URL   { return d.Loc }
func (d *Document) BaseURI() string { return d.Base }
func (d *Document) Charset() string { return d.CS }

func (d *Document) Forms() []dom.Form {
	out := make([]dom.Form, len(d.FormList))
	for i, f := range d.FormList {
		out[i] = f
	}
	return out
}

// Window is a fake browsing context.
type Window struct {
	Doc      *Document
	Kids     []*Window
	IsClosed bool
	parent   *Window
}

// NewWindow returns a top window for doc.
func NewWindow(doc *Document) *Window {
	return &Window{Doc: doc}
}

// AddFrame attaches a child window for doc and returns it.
func (w *Window) AddFrame(doc *Document) *Window {
	f := &Window{Doc: doc, parent: w}
	w.Kids = append(w.Kids, f)
	return f
}

// Close marks the window and its frames closed.
func (w *Window) Close() {
	w.IsClosed = true
	for _, k := range w.Kids {
		k.Close()
	}
}

func (w *Window) Document() dom.Document {
	if w.Doc == nil {
		return nil
	}
	return w.Doc
}

func (w *Window) Frames() []dom.Window {
	out := make([]dom.Window, len(w.Kids))
	for i, k := range w.Kids {
		out[i] = k
	}
	return out
}

func (w *Window) Closed() bool { return w.IsClosed }
func (w *Window) IsTop() bool  { return w.parent == nil }

// Navigator records navigations.
type Navigator struct {
	Requests []dom.Request
	Err      error
}

func (n *Navigator) Navigate(_ context.Context, req dom.Request) error {
	if n.Err != nil {
		return n.Err
	}
	n.Requests = append(n.Requests, req)
	return nil
}
