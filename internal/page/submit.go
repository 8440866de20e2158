package page

import (
	"context"
	"errors"
	"fmt"

	"github.com/zarlcorp/zlogin/internal/dom"
	"github.com/zarlcorp/zlogin/internal/formdata"
)

// ErrDetached is returned when submitting a form whose document is not
// shown in a window that can navigate.
var ErrDetached = errors.New("form not attached to a navigable window")

// DataSet returns the name/value pairs submitting f with submitter would
// send. submitter may be nil.
func (f *Form) DataSet(submitter *Element) *formdata.Builder {
	b := formdata.NewBuilder(f.acceptCharset())

	for _, e := range f.elements {
		if e.Disabled() || e.Name() == "" {
			continue
		}

		switch e.Type() {
		case "submit":
			if e == submitter {
				b.Add(e.Name(), e.Value())
			}
		case "button", "reset", "file":
		case "checkbox", "radio":
			if e.Checked() {
				v := e.Value()
				if v == "" {
					v = "on"
				}
				b.Add(e.Name(), v)
			}
		case "select-one", "select-multiple":
			for _, v := range e.Selected() {
				b.Add(e.Name(), v)
			}
		default:
			b.Add(e.Name(), e.Value())
		}
	}

	if submitter != nil && submitter.Type() == "image" {
		if name := submitter.Name(); name != "" {
			b.Add(name+".x", "0")
			b.Add(name+".y", "0")
		} else {
			b.Add("x", "0")
			b.Add("y", "0")
		}
	}

	return b
}

// Request builds the navigation submitting f with submitter would issue.
func (f *Form) Request(submitter *Element) (dom.Request, error) {
	res, err := dom.ResolveURL(f.Action(), f.doc.base)
	if err != nil {
		return dom.Request{}, fmt.Errorf("form %d: %w", f.index, err)
	}

	data := f.DataSet(submitter).String()
	target := *res.URL

	req := dom.Request{
		Method:   "GET",
		URL:      &target,
		Referrer: f.doc.url.String(),
	}
	if f.Method() == "post" {
		req.Method = "POST"
		req.Body = data
		req.ContentType = formdata.ContentType
		return req, nil
	}

	target.RawQuery = data
	target.ForceQuery = false
	return req, nil
}

func (f *Form) submit(ctx context.Context, submitter *Element) error {
	w := f.doc.win
	if w == nil || w.nav == nil || w.Closed() {
		return ErrDetached
	}

	req, err := f.Request(submitter)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := w.nav.Navigate(ctx, req); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}
