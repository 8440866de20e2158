package credential

import (
	"strings"
	"time"
)

// Credential holds a stored login for one site.
type Credential struct {
	ID string `json:"id"`
	// Origin is the scheme://host[:port] of the page the login belongs to.
	Origin string `json:"origin"`
	// ActionOrigin is the scheme://host[:port] the login form submits to.
	// Empty matches any form on Origin.
	ActionOrigin  string    `json:"action_origin,omitempty"`
	Label         string    `json:"label"`
	Username      string    `json:"username"`
	Password      string    `json:"password"`
	UsernameField string    `json:"username_field,omitempty"`
	PasswordField string    `json:"password_field,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Matches reports whether c applies to a form on origin submitting to
// target. An empty target matches every record for origin.
func (c Credential) Matches(origin, target string) bool {
	if !strings.EqualFold(c.Origin, origin) {
		return false
	}
	return target == "" || c.ActionOrigin == "" || strings.EqualFold(c.ActionOrigin, target)
}

// Hinted reports whether the record carries field name hints.
func (c Credential) Hinted() bool {
	return c.PasswordField != ""
}

// Erase clears the secret material held by c.
func (c *Credential) Erase() {
	c.Password = ""
	c.Username = ""
}
