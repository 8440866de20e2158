// Package formdata builds application/x-www-form-urlencoded payloads in a
// document's character encoding.
package formdata

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// ContentType is the media type of an encoded payload.
const ContentType = "application/x-www-form-urlencoded"

const upperhex = "0123456789ABCDEF"

// Pair is a single name/value entry.
type Pair struct {
	Name  string
	Value string
}

// Encoder percent-encodes strings for one charset.
//
// UTF-8 follows encodeURIComponent: everything except A-Z a-z 0-9 and
// -_.!~*'() is escaped. Other charsets are converted first (unmappable
// characters become numeric character references, as browsers do) and then
// escaped keeping alphanumerics and @*_-./, with space as '+'.
type Encoder struct {
	charset string
	enc     *encoding.Encoder
}

// NewEncoder returns an encoder for charset. Unknown or empty charsets fall
// back to UTF-8.
func NewEncoder(charset string) *Encoder {
	e, err := htmlindex.Get(strings.TrimSpace(charset))
	if err != nil {
		return &Encoder{charset: "utf-8"}
	}

	name, err := htmlindex.Name(e)
	if err != nil || name == "utf-8" {
		return &Encoder{charset: "utf-8"}
	}

	return &Encoder{
		charset: name,
		enc:     encoding.HTMLEscapeUnsupported(e.NewEncoder()),
	}
}

// Charset returns the canonical charset name in use.
func (e *Encoder) Charset() string {
	return e.charset
}

// Escape encodes s.
func (e *Encoder) Escape(s string) string {
	if e.enc == nil {
		return escape(s, isURIComponentSafe, false)
	}

	converted, err := e.enc.String(s)
	if err != nil {
		// not reachable with HTMLEscapeUnsupported, keep the utf-8 form
		converted = s
	}
	return escape(converted, isSubURISafe, true)
}

// Encode joins pairs as name=value&name=value.
func (e *Encoder) Encode(pairs []Pair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(e.Escape(p.Name))
		b.WriteByte('=')
		b.WriteString(e.Escape(p.Value))
	}
	return b.String()
}

// Builder accumulates pairs in insertion order.
type Builder struct {
	enc   *Encoder
	pairs []Pair
}

// NewBuilder returns a builder encoding with charset.
func NewBuilder(charset string) *Builder {
	return &Builder{enc: NewEncoder(charset)}
}

// Add appends a pair.
func (b *Builder) Add(name, value string) {
	b.pairs = append(b.pairs, Pair{Name: name, Value: value})
}

// Pairs returns the accumulated pairs.
func (b *Builder) Pairs() []Pair {
	return b.pairs
}

// Len returns the number of pairs.
func (b *Builder) Len() int {
	return len(b.pairs)
}

// String returns the encoded payload.
func (b *Builder) String() string {
	return b.enc.Encode(b.pairs)
}

func escape(s string, safe func(byte) bool, plusSpace bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case safe(c):
			b.WriteByte(c)
		case plusSpace && c == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		}
	}
	return b.String()
}

func isAlnum(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

func isURIComponentSafe(c byte) bool {
	if isAlnum(c) {
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

func isSubURISafe(c byte) bool {
	if isAlnum(c) {
		return true
	}
	switch c {
	case '@', '*', '_', '-', '.', '/':
		return true
	}
	return false
}
