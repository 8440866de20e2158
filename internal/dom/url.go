package dom

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedURI is returned when a reference cannot be turned into an
// absolute URL.
var ErrMalformedURI = errors.New("malformed uri")

// Resolution is the result of ResolveURL.
type Resolution struct {
	URL *url.URL
	// Relative is true when the reference had to be resolved against the
	// base URI.
	Relative bool
}

// ResolveURL turns ref into an absolute URL. An absolute ref is used as is;
// otherwise ref is resolved against base. An empty ref yields base.
func ResolveURL(ref, base string) (Resolution, error) {
	ref = strings.TrimSpace(ref)

	if ref != "" {
		u, err := url.Parse(ref)
		if err != nil {
			return Resolution{}, fmt.Errorf("resolve %q: %w", ref, ErrMalformedURI)
		}
		if u.IsAbs() {
			return Resolution{URL: u}, nil
		}
	}

	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil || !b.IsAbs() {
		return Resolution{}, fmt.Errorf("resolve %q against %q: %w", ref, base, ErrMalformedURI)
	}

	if ref == "" {
		return Resolution{URL: b, Relative: true}, nil
	}

	u, err := b.Parse(ref)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve %q against %q: %w", ref, base, ErrMalformedURI)
	}
	return Resolution{URL: u, Relative: true}, nil
}

// Origin returns the scheme://host[:port] prefix of u, lower-cased.
func Origin(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// SameURL compares two absolute URLs for equality of their serialized form.
func SameURL(a, b *url.URL) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}
