package dispatch

import (
	"fmt"
	"net/url"
	"strings"
)

// SecurityPolicy decides whether source may load target.
type SecurityPolicy interface {
	CheckLoadURI(source, target *url.URL) error
}

// SecurityError reports a rejected protected submission.
type SecurityError struct {
	Source string
	Target string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("loading of %s from %s denied: %s", e.Target, e.Source, e.Reason)
}

// StandardPolicy allows http and https pages to load http and https
// targets that name a host.
type StandardPolicy struct{}

// CheckLoadURI implements SecurityPolicy.
func (StandardPolicy) CheckLoadURI(source, target *url.URL) error {
	deny := func(reason string) error {
		return &SecurityError{Source: str(source), Target: str(target), Reason: reason}
	}

	if source == nil || target == nil {
		return deny("missing url")
	}
	if !webScheme(source.Scheme) {
		return deny("source scheme " + source.Scheme + " not allowed")
	}
	if !webScheme(target.Scheme) {
		return deny("target scheme " + target.Scheme + " not allowed")
	}
	if target.Host == "" {
		return deny("target has no host")
	}
	if target.User != nil {
		return deny("target carries credentials")
	}
	return nil
}

func webScheme(s string) bool {
	s = strings.ToLower(s)
	return s == "http" || s == "https"
}

func str(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Redacted()
}
