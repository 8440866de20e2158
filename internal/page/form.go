package page

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/zarlcorp/zlogin/internal/dom"
)

// Form is a form element and its controls, captured at parse time.
type Form struct {
	doc      *Document
	sel      *goquery.Selection
	index    int
	elements []*Element
	images   []*Element
}

var _ dom.Form = (*Form)(nil)

func newForm(d *Document, s *goquery.Selection, index int) *Form {
	f := &Form{doc: d, sel: s, index: index}
	s.Find("input, select, textarea, button").Each(func(_ int, c *goquery.Selection) {
		e := &Element{form: f, sel: c}
		if goquery.NodeName(c) == "input" && strings.EqualFold(strings.TrimSpace(c.AttrOr("type", "")), "image") {
			f.images = append(f.images, e)
			return
		}
		f.elements = append(f.elements, e)
	})
	return f
}

func (f *Form) Index() int { return f.index }

func (f *Form) Action() string {
	return strings.TrimSpace(f.sel.AttrOr("action", ""))
}

func (f *Form) Method() string {
	if strings.EqualFold(strings.TrimSpace(f.sel.AttrOr("method", "")), "post") {
		return "post"
	}
	return "get"
}

func (f *Form) Elements() []dom.Element {
	out := make([]dom.Element, len(f.elements))
	for i, e := range f.elements {
		out[i] = e
	}
	return out
}

func (f *Form) Images() []dom.Element {
	out := make([]dom.Element, len(f.images))
	for i, e := range f.images {
		out[i] = e
	}
	return out
}

// Element returns the first control named name, or nil.
func (f *Form) Element(name string) *Element {
	for _, e := range f.elements {
		if e.Name() == name {
			return e
		}
	}
	for _, e := range f.images {
		if e.Name() == name {
			return e
		}
	}
	return nil
}

// Submit submits the form without a submitter.
func (f *Form) Submit(ctx context.Context) error {
	return f.submit(ctx, nil)
}

// acceptCharset returns the first accept-charset label, or the document
// charset.
func (f *Form) acceptCharset() string {
	labels := strings.FieldsFunc(f.sel.AttrOr("accept-charset", ""), func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(labels) > 0 {
		return labels[0]
	}
	return f.doc.charset
}

var inputTypes = map[string]bool{
	"hidden": true, "text": true, "search": true, "tel": true, "url": true,
	"email": true, "password": true, "date": true, "month": true, "week": true,
	"time": true, "datetime-local": true, "number": true, "range": true,
	"color": true, "checkbox": true, "radio": true, "file": true,
	"submit": true, "image": true, "reset": true, "button": true,
}

// Element is a form control.
type Element struct {
	form *Form
	sel  *goquery.Selection
}

var _ dom.Element = (*Element)(nil)

func (e *Element) Name() string {
	return e.sel.AttrOr("name", "")
}

func (e *Element) Type() string {
	switch goquery.NodeName(e.sel) {
	case "textarea":
		return "textarea"
	case "select":
		if _, ok := e.sel.Attr("multiple"); ok {
			return "select-multiple"
		}
		return "select-one"
	case "button":
		switch t := strings.ToLower(strings.TrimSpace(e.sel.AttrOr("type", ""))); t {
		case "reset", "button":
			return t
		}
		return "submit"
	}

	t := strings.ToLower(strings.TrimSpace(e.sel.AttrOr("type", "")))
	if !inputTypes[t] {
		return "text"
	}
	return t
}

func (e *Element) Disabled() bool {
	if _, ok := e.sel.Attr("disabled"); ok {
		return true
	}
	return e.sel.ParentsFiltered("fieldset[disabled]").Length() > 0
}

func (e *Element) Value() string {
	switch e.Type() {
	case "textarea":
		return e.sel.Text()
	case "select-one", "select-multiple":
		if v := e.Selected(); len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return e.sel.AttrOr("value", "")
}

func (e *Element) SetValue(v string) {
	switch e.Type() {
	case "textarea":
		e.sel.SetText(v)
	case "select-one", "select-multiple":
		e.sel.Find("option").Each(func(_ int, o *goquery.Selection) {
			if optionValue(o) == v {
				o.SetAttr("selected", "")
			} else {
				o.RemoveAttr("selected")
			}
		})
	default:
		e.sel.SetAttr("value", v)
	}
}

func (e *Element) Checked() bool {
	_, ok := e.sel.Attr("checked")
	return ok
}

// Selected returns the values of the selected options. A single select
// without an explicit selection selects its first enabled option.
func (e *Element) Selected() []string {
	typ := e.Type()
	if typ != "select-one" && typ != "select-multiple" {
		return nil
	}

	var out []string
	e.sel.Find("option[selected]").Each(func(_ int, o *goquery.Selection) {
		if _, dis := o.Attr("disabled"); dis {
			return
		}
		out = append(out, optionValue(o))
	})
	if typ == "select-one" {
		if len(out) > 1 {
			out = out[len(out)-1:]
		}
		if len(out) == 0 {
			e.sel.Find("option").EachWithBreak(func(_ int, o *goquery.Selection) bool {
				if _, dis := o.Attr("disabled"); dis {
					return true
				}
				out = append(out, optionValue(o))
				return false
			})
		}
	}
	return out
}

// Click activates the control: submit buttons submit their form,
// checkboxes toggle and radios select.
func (e *Element) Click(ctx context.Context) error {
	if e.Disabled() {
		return nil
	}
	switch e.Type() {
	case "submit", "image":
		return e.form.submit(ctx, e)
	case "checkbox":
		if e.Checked() {
			e.sel.RemoveAttr("checked")
		} else {
			e.sel.SetAttr("checked", "")
		}
	case "radio":
		for _, o := range e.form.elements {
			if o.Type() == "radio" && o.Name() == e.Name() {
				o.sel.RemoveAttr("checked")
			}
		}
		e.sel.SetAttr("checked", "")
	}
	return nil
}

func (e *Element) Focus() {
	e.form.doc.focused = e
}

func (e *Element) SetStyle(css string) {
	if css == "" {
		e.sel.RemoveAttr("style")
		return
	}
	e.sel.SetAttr("style", css)
}

// Style returns the inline style attribute.
func (e *Element) Style() string {
	return e.sel.AttrOr("style", "")
}

func optionValue(o *goquery.Selection) string {
	if v, ok := o.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(o.Text())
}
