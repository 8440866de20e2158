// Package fields decides whether a form is a login form and which of its
// controls hold the username and password.
package fields

import "github.com/zarlcorp/zlogin/internal/dom"

// Match is the result of a successful classification. Username may be nil
// for password-only forms; Password never is.
type Match struct {
	Username dom.Element
	Password dom.Element
}

// Classify inspects form and returns the credential fields. When
// passwordHint is set the hinted field names are looked up directly;
// otherwise the controls are scanned heuristically. A password input that
// has another password input next to it is never selected.
func Classify(form dom.Form, usernameHint, passwordHint string) (Match, bool) {
	if form == nil {
		return Match{}, false
	}

	els := form.Elements()
	if passwordHint != "" {
		return hinted(els, usernameHint, passwordHint)
	}
	return heuristic(els)
}

func hinted(els []dom.Element, userName, passName string) (Match, bool) {
	var (
		m       Match
		textual bool
	)

	for i, e := range els {
		if !usable(e) {
			continue
		}

		if e.Type() == "password" {
			if m.Password == nil && e.Name() == passName && !pairedPassword(els, i) {
				m.Password = e
			}
			continue
		}

		if IsTextual(e.Type()) {
			textual = true
		}
		if m.Username == nil && userName != "" && e.Name() == userName {
			m.Username = e
		}
	}

	if m.Password == nil {
		return Match{}, false
	}
	if m.Username == nil && (textual || userName != "") {
		return Match{}, false
	}
	return m, true
}

func heuristic(els []dom.Element) (Match, bool) {
	var (
		candidate dom.Element
		textual   bool
	)

	for i, e := range els {
		if !usable(e) {
			continue
		}

		typ := e.Type()
		switch {
		case typ == "password":
			if pairedPassword(els, i) {
				// the username belongs to the rejected password run
				candidate = nil
				continue
			}
			if candidate == nil && textual {
				return Match{}, false
			}
			return Match{Username: candidate, Password: e}, true
		case IsTextual(typ):
			textual = true
			candidate = e
		}
	}

	return Match{}, false
}

// IsTextual reports whether typ is an input type that can hold a username.
func IsTextual(typ string) bool {
	switch typ {
	case "text", "email", "tel", "url", "search", "number":
		return true
	}
	return false
}

func usable(e dom.Element) bool {
	return e != nil && !e.Disabled() && e.Name() != ""
}

// pairedPassword reports whether the element at i has a password input
// directly before or after it.
func pairedPassword(els []dom.Element, i int) bool {
	if i > 0 && els[i-1] != nil && els[i-1].Type() == "password" {
		return true
	}
	if i+1 < len(els) && els[i+1] != nil && els[i+1].Type() == "password" {
		return true
	}
	return false
}
