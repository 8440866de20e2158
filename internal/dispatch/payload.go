package dispatch

import (
	"github.com/zarlcorp/zlogin/internal/credential"
	"github.com/zarlcorp/zlogin/internal/dom"
	"github.com/zarlcorp/zlogin/internal/fields"
	"github.com/zarlcorp/zlogin/internal/formdata"
)

// BuildPayload reconstructs the data set the form would submit, with the
// stored credential in place of the matched fields. Live values of the
// matched fields are never read.
func BuildPayload(form dom.Form, m fields.Match, c credential.Credential, charset string) *formdata.Builder {
	b := formdata.NewBuilder(charset)
	submitFound := false

	for _, e := range form.Elements() {
		if e == nil || e.Disabled() || e.Name() == "" {
			continue
		}

		if m.Password != nil && e == m.Password {
			b.Add(e.Name(), c.Password)
			continue
		}
		if m.Username != nil && e == m.Username {
			b.Add(e.Name(), c.Username)
			continue
		}

		switch e.Type() {
		case "password":
			// only the matched password is sent
		case "checkbox", "radio":
			if e.Checked() {
				b.Add(e.Name(), checkedValue(e.Value()))
			}
		case "submit":
			if !submitFound {
				b.Add(e.Name(), e.Value())
				submitFound = true
			}
		case "button", "reset", "file":
			// not part of a submitted data set
		case "select-one", "select-multiple":
			for _, v := range e.Selected() {
				b.Add(e.Name(), v)
			}
		default:
			b.Add(e.Name(), e.Value())
		}
	}

	if !submitFound {
		for _, img := range form.Images() {
			if img == nil || img.Disabled() {
				continue
			}
			name := img.Name()
			if name == "" {
				b.Add("x", "1")
				b.Add("y", "1")
				continue
			}
			b.Add(name+".x", "1")
			b.Add(name+".y", "1")
			b.Add(name, img.Value())
		}
	}

	return b
}

func checkedValue(v string) string {
	if v == "" {
		return "on"
	}
	return v
}
