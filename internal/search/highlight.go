package search

import (
	"strings"

	"github.com/zarlcorp/zlogin/internal/dom"
	"github.com/zarlcorp/zlogin/internal/registry"
)

// Highlight describes the outline drawn around matched fields.
type Highlight struct {
	Color  string
	Width  string
	Style  string
	Radius string
	// Custom replaces the generated declarations when set.
	Custom string
}

// CSS returns the style declarations, or "" when highlighting is off.
func (h Highlight) CSS() string {
	if c := strings.TrimSpace(h.Custom); c != "" {
		return c
	}

	w := strings.TrimSpace(h.Width)
	if w == "" || w == "0" || w == "0px" {
		return ""
	}

	var b strings.Builder
	b.WriteString("outline: ")
	b.WriteString(strings.Join(nonEmpty(w, h.Style, h.Color), " "))
	b.WriteString(";")
	if r := strings.TrimSpace(h.Radius); r != "" {
		b.WriteString(" outline-radius: " + r + "; -moz-outline-radius: " + r + ";")
	}
	return b.String()
}

// Apply outlines the given elements. Nil elements are ignored.
func (h Highlight) Apply(els ...dom.Element) {
	css := h.CSS()
	if css == "" {
		return
	}
	for _, e := range els {
		if e != nil {
			e.SetStyle(css)
		}
	}
}

// ApplyAll outlines the fields of every live entry.
func (h Highlight) ApplyAll(entries []registry.FoundLogin) {
	for _, e := range entries {
		if !e.Live() {
			continue
		}
		h.Apply(e.Fields.Username, e.Fields.Password)
	}
}

func nonEmpty(ss ...string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
