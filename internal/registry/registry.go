// Package registry holds the logins found on a page.
package registry

import (
	"net/url"

	"github.com/zarlcorp/zlogin/internal/credential"
	"github.com/zarlcorp/zlogin/internal/dom"
	"github.com/zarlcorp/zlogin/internal/fields"
)

// FormDescriptor locates a form.
type FormDescriptor struct {
	Window dom.Window
	Form   dom.Form
	Index  int
	Action *url.URL
	Method string
}

// FoundLogin is a credential matched against a form.
type FoundLogin struct {
	Credential credential.Credential
	Form       FormDescriptor
	Fields     fields.Match
	// ActionURI is the resolved form action.
	ActionURI string
}

// Live reports whether the login's window can still be used.
func (f FoundLogin) Live() bool {
	return dom.Live(f.Form.Window)
}

// Registry is an ordered list of found logins. It is not safe for concurrent
// use; the session serializes access.
type Registry struct {
	entries       []FoundLogin
	showFormIndex bool
}

// Append adds f. The form index flag is set as soon as entries span more
// than one form index and stays set until the next reset.
func (r *Registry) Append(f FoundLogin) {
	if !r.showFormIndex && len(r.entries) > 0 && !r.hasFormIndex(f.Form.Index) {
		r.showFormIndex = true
	}
	r.entries = append(r.entries, f)
}

// Reset empties the registry and scrubs credential material.
func (r *Registry) Reset() {
	for i := range r.entries {
		r.entries[i].Credential.Erase()
	}
	r.entries = nil
	r.showFormIndex = false
}

// Replace swaps the contents for entries, as a reset followed by appends.
func (r *Registry) Replace(entries []FoundLogin) {
	r.Reset()
	for _, e := range entries {
		r.Append(e)
	}
}

// Prune drops entries whose window has closed.
func (r *Registry) Prune() {
	r.PruneWindow(nil)
}

// PruneWindow drops entries that belong to w or to a closed window, and
// recomputes the form index flag from what remains.
func (r *Registry) PruneWindow(w dom.Window) {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if (w != nil && e.Form.Window == w) || !e.Live() {
			continue
		}
		kept = append(kept, e)
	}
	// clear the tail so dropped entries are not reachable
	for i := len(kept); i < len(r.entries); i++ {
		r.entries[i] = FoundLogin{}
	}
	r.entries = kept

	seen := make(map[int]bool)
	for _, e := range r.entries {
		seen[e.Form.Index] = true
	}
	r.showFormIndex = len(seen) > 1
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// At returns the entry at i.
func (r *Registry) At(i int) (FoundLogin, bool) {
	if i < 0 || i >= len(r.entries) {
		return FoundLogin{}, false
	}
	return r.entries[i], true
}

// All returns a copy of the entries.
func (r *Registry) All() []FoundLogin {
	out := make([]FoundLogin, len(r.entries))
	copy(out, r.entries)
	return out
}

// ShowFormIndex reports whether entries span more than one form index.
func (r *Registry) ShowFormIndex() bool {
	return r.showFormIndex
}

func (r *Registry) hasFormIndex(idx int) bool {
	for _, e := range r.entries {
		if e.Form.Index == idx {
			return true
		}
	}
	return false
}
