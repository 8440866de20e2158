// Package page is a static HTML document model backed by goquery. It
// implements the dom interfaces without a scripting or layout engine:
// control state lives in node attributes and form submission is turned
// into a navigation request.
package page

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/saintfish/chardet"
	"github.com/zarlcorp/zlogin/internal/dom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// MaxSize is the largest document Parse accepts.
const MaxSize = 10 << 20

// ErrTooLarge is returned for documents over MaxSize.
var ErrTooLarge = errors.New("document too large")

// minConfidence is the chardet confidence below which a guess is ignored.
const minConfidence = 50

// Document is a parsed HTML document.
type Document struct {
	url     *url.URL
	base    string
	charset string
	doc     *goquery.Document
	forms   []*Form
	win     *Window
	focused *Element
}

var _ dom.Document = (*Document)(nil)

// Parse decodes body using the content type, any byte order mark or meta
// declaration, and finally content sniffing, then parses it as HTML.
func Parse(u *url.URL, body []byte, contentType string) (*Document, error) {
	if u == nil {
		return nil, errors.New("parse: missing url")
	}
	if len(body) > MaxSize {
		return nil, fmt.Errorf("parse: %w", ErrTooLarge)
	}

	name := detectCharset(body, contentType)
	r, err := charset.NewReaderLabel(name, bytes.NewReader(body))
	if err != nil {
		name = "utf-8"
		r = bytes.NewReader(body)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	d := &Document{
		url:     u,
		charset: name,
		doc:     doc,
	}
	d.base = d.baseURI()

	doc.Find("form").Each(func(i int, s *goquery.Selection) {
		d.forms = append(d.forms, newForm(d, s, i))
	})

	return d, nil
}

// ParseString parses an HTML string as UTF-8.
func ParseString(rawURL, html string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return Parse(u, []byte(html), "text/html; charset=utf-8")
}

func (d *Document) URL() *url.URL   { return d.url }
func (d *Document) BaseURI() string { return d.base }
func (d *Document) Charset() string { return d.charset }

func (d *Document) Forms() []dom.Form {
	out := make([]dom.Form, len(d.forms))
	for i, f := range d.forms {
		out[i] = f
	}
	return out
}

// Form returns the form at index i, or nil.
func (d *Document) Form(i int) *Form {
	if i < 0 || i >= len(d.forms) {
		return nil
	}
	return d.forms[i]
}

// Title returns the trimmed document title.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Focused returns the element last focused, or nil.
func (d *Document) Focused() *Element {
	return d.focused
}

// HTML renders the current state of the document.
func (d *Document) HTML() (string, error) {
	return d.doc.Html()
}

// FrameSources returns the resolved URLs of the document's frames and
// iframes in tree order. Sources that cannot be loaded are left out.
func (d *Document) FrameSources() []*url.URL {
	var out []*url.URL
	d.doc.Find("iframe[src], frame[src]").Each(func(_ int, s *goquery.Selection) {
		res, err := dom.ResolveURL(strings.TrimSpace(s.AttrOr("src", "")), d.base)
		if err != nil {
			return
		}
		switch strings.ToLower(res.URL.Scheme) {
		case "http", "https":
			out = append(out, res.URL)
		}
	})
	return out
}

func (d *Document) baseURI() string {
	href, ok := d.doc.Find("base[href]").First().Attr("href")
	if !ok {
		return d.url.String()
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return d.url.String()
	}
	return d.url.ResolveReference(ref).String()
}

// detectCharset returns the canonical encoding name for body. Declared
// encodings win; undeclared non-ASCII content is sniffed with chardet.
func detectCharset(body []byte, contentType string) string {
	_, name, certain := charset.DetermineEncoding(body, contentType)
	if certain || name != "windows-1252" || !hasHighBit(body) {
		return name
	}

	res, err := chardet.NewHtmlDetector().DetectBest(body)
	if err != nil || res == nil || res.Confidence < minConfidence {
		return name
	}
	enc, err := htmlindex.Get(res.Charset)
	if err != nil {
		return name
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		return name
	}
	return canonical
}

func hasHighBit(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return true
		}
	}
	return false
}
