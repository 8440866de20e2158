// Package dom defines the narrow document capabilities the login core works
// against. Concrete documents live in package page; tests use fakes.
package dom

import (
	"context"
	"net/url"
)

// Element is a form control.
type Element interface {
	Name() string
	// Type is the lower-case control type: input types ("text", "password",
	// "checkbox", ...), "submit" for buttons without a type, "textarea",
	// "select-one" or "select-multiple".
	Type() string
	Disabled() bool
	Value() string
	SetValue(v string)
	Checked() bool
	// Selected returns the values of the selected options of a select
	// element, nil for every other control.
	Selected() []string
	Click(ctx context.Context) error
	Focus()
	SetStyle(css string)
}

// Form is a form within a document.
type Form interface {
	// Index is the zero-based position in the document's form collection.
	Index() int
	// Action is the raw action attribute, empty when absent.
	Action() string
	// Method is "get" or "post", lower case; "get" when absent or invalid.
	Method() string
	// Elements returns the listed controls in tree order. Image inputs are
	// not listed, matching the HTML form.elements collection.
	Elements() []Element
	// Images returns the form's input elements of type image.
	Images() []Element
	Submit(ctx context.Context) error
}

// Document is a loaded document.
type Document interface {
	URL() *url.URL
	BaseURI() string
	// Charset is the declared or detected document encoding, e.g. "UTF-8".
	Charset() string
	Forms() []Form
}

// Window is a browsing context: the top window or a frame.
type Window interface {
	Document() Document
	Frames() []Window
	Closed() bool
	// IsTop reports whether the window has no parent frame.
	IsTop() bool
}

// Request is a navigation issued on behalf of a form.
type Request struct {
	Method      string // GET or POST
	URL         *url.URL
	Referrer    string
	Body        string
	ContentType string
}

// Navigator performs navigations.
type Navigator interface {
	Navigate(ctx context.Context, req Request) error
}

// Snapshot returns w and all its descendant frames in pre-order, captured
// once so later mutation of the frame tree does not affect iteration.
func Snapshot(w Window) []Window {
	if w == nil {
		return nil
	}
	out := []Window{w}
	for _, f := range w.Frames() {
		out = append(out, Snapshot(f)...)
	}
	return out
}

// Live reports whether w can still be dereferenced.
func Live(w Window) bool {
	return w != nil && !w.Closed() && w.Document() != nil
}
