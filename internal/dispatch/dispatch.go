// Package dispatch logs in with a selected credential.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zarlcorp/zlogin/internal/dom"
	"github.com/zarlcorp/zlogin/internal/formdata"
	"github.com/zarlcorp/zlogin/internal/registry"
)

// ErrUnsupportedMethod is returned by the protected strategy for form
// methods other than GET and POST.
var ErrUnsupportedMethod = errors.New("unsupported form method")

// Options selects the login strategy.
type Options struct {
	// Protected sends the login as a request built from the form instead of
	// filling the page.
	Protected bool
	// AutoSubmit submits the filled form in the normal strategy; otherwise
	// the password field is focused.
	AutoSubmit bool
}

// Dispatcher performs logins.
type Dispatcher struct {
	nav    dom.Navigator
	policy SecurityPolicy
	log    *slog.Logger
}

// New returns a dispatcher. nav is used by the protected strategy. A nil
// policy uses StandardPolicy and a nil logger the default.
func New(nav dom.Navigator, policy SecurityPolicy, log *slog.Logger) *Dispatcher {
	if policy == nil {
		policy = StandardPolicy{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{nav: nav, policy: policy, log: log}
}

// Login runs the chosen strategy for sel. A login whose window has closed
// is dropped without error.
func (d *Dispatcher) Login(ctx context.Context, sel registry.FoundLogin, opts Options) error {
	if !sel.Live() {
		d.log.Debug("login window closed", "action", sel.ActionURI)
		return nil
	}
	if sel.Fields.Password == nil || sel.Form.Form == nil {
		return errors.New("login: incomplete selection")
	}

	if opts.Protected {
		return d.loginProtected(ctx, sel)
	}
	return d.loginNormal(ctx, sel, opts.AutoSubmit)
}

func (d *Dispatcher) loginNormal(ctx context.Context, sel registry.FoundLogin, autoSubmit bool) error {
	if sel.Fields.Username != nil {
		sel.Fields.Username.SetValue(sel.Credential.Username)
	}
	sel.Fields.Password.SetValue(sel.Credential.Password)

	if !autoSubmit {
		sel.Fields.Password.Focus()
		return nil
	}

	form := sel.Form.Form
	if btn := submitControl(form); btn != nil {
		if err := btn.Click(ctx); err != nil {
			return fmt.Errorf("login: click submit: %w", err)
		}
		return nil
	}

	if err := form.Submit(ctx); err != nil {
		return fmt.Errorf("login: submit form: %w", err)
	}
	return nil
}

func (d *Dispatcher) loginProtected(ctx context.Context, sel registry.FoundLogin) error {
	doc := sel.Form.Window.Document()
	source := doc.URL()

	target := sel.Form.Action
	if target == nil {
		res, err := dom.ResolveURL(sel.ActionURI, doc.BaseURI())
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		target = res.URL
	}

	if err := d.policy.CheckLoadURI(source, target); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	payload := BuildPayload(sel.Form.Form, sel.Fields, sel.Credential, doc.Charset())

	req := dom.Request{Referrer: source.String()}
	u := *target

	switch method := strings.ToLower(sel.Form.Method); method {
	case "get", "":
		u.RawQuery = payload.String()
		u.ForceQuery = false
		req.Method = "GET"
	case "post":
		req.Method = "POST"
		req.Body = payload.String()
		req.ContentType = formdata.ContentType
	default:
		return fmt.Errorf("login: %w: %s", ErrUnsupportedMethod, method)
	}
	req.URL = &u

	if d.nav == nil {
		return errors.New("login: no navigator")
	}
	if err := d.nav.Navigate(ctx, req); err != nil {
		return fmt.Errorf("login: navigate: %w", err)
	}
	return nil
}

// submitControl returns the first submit or image control of form.
func submitControl(form dom.Form) dom.Element {
	for _, e := range form.Elements() {
		if e == nil || e.Disabled() {
			continue
		}
		if t := e.Type(); t == "submit" || t == "image" {
			return e
		}
	}
	for _, e := range form.Images() {
		if e != nil && !e.Disabled() {
			return e
		}
	}
	return nil
}
