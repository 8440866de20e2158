package prefs

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
)

// Exceptions returns the origins in the named list, which must be
// ExceptionList or AutoLoginExceptions.
func (m *Manager) Exceptions(list string) ([]string, error) {
	field, err := listField(list)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), *field(&m.cur)...), nil
}

// IsException reports whether origin is in the named list.
func (m *Manager) IsException(list, origin string) bool {
	field, err := listField(list)
	if err != nil {
		return false
	}

	o := CanonicalOrigin(origin)
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(*field(&m.cur), o)
}

// AddException adds the origin of rawURL to the named list.
func (m *Manager) AddException(list, rawURL string) error {
	field, err := listField(list)
	if err != nil {
		return err
	}

	o := CanonicalOrigin(rawURL)
	if o == "" {
		return fmt.Errorf("add exception: empty origin")
	}

	return m.update(list, func(p *Prefs) error {
		f := field(p)
		*f = normalizeList(append(*f, o))
		return nil
	})
}

// RemoveException removes the origin of rawURL from the named list.
func (m *Manager) RemoveException(list, rawURL string) error {
	field, err := listField(list)
	if err != nil {
		return err
	}

	o := CanonicalOrigin(rawURL)
	return m.update(list, func(p *Prefs) error {
		f := field(p)
		*f = slices.DeleteFunc(*f, func(s string) bool { return s == o })
		return nil
	})
}

// CanonicalOrigin reduces a URL or origin to lower-case scheme://host. Input
// that does not parse as an absolute URL is returned trimmed and
// lower-cased.
func CanonicalOrigin(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimSuffix(strings.ToLower(raw), "/")
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

func listField(list string) (func(*Prefs) *[]string, error) {
	switch list {
	case ExceptionList:
		return func(p *Prefs) *[]string { return &p.ExceptionList }, nil
	case AutoLoginExceptions:
		return func(p *Prefs) *[]string { return &p.AutoLoginExceptions }, nil
	}
	return nil, fmt.Errorf("exception list %q: %w", list, ErrUnknown)
}

// normalizeList canonicalizes, sorts and de-duplicates origins.
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if o := CanonicalOrigin(s); o != "" {
			out = append(out, o)
		}
	}
	sort.Strings(out)
	return slices.Compact(out)
}
