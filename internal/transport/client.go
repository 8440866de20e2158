// Package transport fetches pages and submits forms over HTTP, keeping
// cookies between requests like a browser tab.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/zarlcorp/zlogin/internal/dom"
	"golang.org/x/net/publicsuffix"
)

// ErrUnsupportedScheme is returned for requests that are not http or https.
var ErrUnsupportedScheme = errors.New("unsupported scheme")

// ErrTooLarge is returned when a response body exceeds Config.MaxBody.
var ErrTooLarge = errors.New("response body too large")

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) zlogin/1.0"

// Config holds client settings. Zero values select defaults.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	// MaxBody caps the bytes read from a response body. Larger responses
	// fail with ErrTooLarge.
	MaxBody int
}

// Response is a fetched document.
type Response struct {
	// URL is the final URL after redirects.
	URL         *url.URL
	Status      int
	ContentType string
	Body        []byte
}

// Client sends page requests with a shared cookie jar.
type Client struct {
	r       *resty.Client
	maxBody int
}

// NewClient creates a client with a public-suffix aware cookie jar.
func NewClient(cfg Config) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("new client: cookie jar: %w", err)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.MaxBody == 0 {
		cfg.MaxBody = 10 << 20
	}

	r := resty.New().
		SetCookieJar(jar).
		SetTimeout(cfg.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(cfg.MaxRedirects)).
		SetResponseBodyLimit(cfg.MaxBody).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9")

	return &Client{r: r, maxBody: cfg.MaxBody}, nil
}

// Fetch loads rawURL with GET.
func (c *Client) Fetch(ctx context.Context, rawURL, referrer string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	resp, err := c.do(ctx, dom.Request{Method: http.MethodGet, URL: u, Referrer: referrer})
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return resp, nil
}

// Send performs a navigation request, typically a form submission.
func (c *Client) Send(ctx context.Context, req dom.Request) (*Response, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	return resp, nil
}

// Cookies returns the cookies the jar would send to rawURL.
func (c *Client) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil || c.r.GetClient().Jar == nil {
		return nil
	}
	return c.r.GetClient().Jar.Cookies(u)
}

func (c *Client) do(ctx context.Context, req dom.Request) (*Response, error) {
	if req.URL == nil {
		return nil, errors.New("missing url")
	}
	if s := strings.ToLower(req.URL.Scheme); s != "http" && s != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, req.URL.Scheme)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	// fragments never go on the wire
	target := *req.URL
	target.Fragment = ""
	target.RawFragment = ""

	r := c.r.R().SetContext(ctx)
	if ref := referer(req.Referrer); ref != "" {
		r.SetHeader("Referer", ref)
	}
	if method == http.MethodPost {
		r.SetHeader("Content-Type", req.ContentType).SetBody(req.Body)
	}

	resp, err := r.Execute(method, target.String())
	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return nil, fmt.Errorf("%w: %s over %d bytes", ErrTooLarge, target.Redacted(), c.maxBody)
	}
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	final := target
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		final = *raw.Request.URL
	}
	// a redirect without its own fragment inherits the request's
	if final.Fragment == "" {
		final.Fragment = req.URL.Fragment
		final.RawFragment = req.URL.RawFragment
	}

	return &Response{
		URL:         &final,
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

// referer returns raw without fragment or credentials, or "" when raw is
// not an http(s) URL.
func referer(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
		return ""
	}
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
