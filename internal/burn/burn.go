// Package burn implements best-effort removal of everything stored for a
// site.
package burn

import (
	"context"
	"fmt"
	"strings"

	"github.com/zarlcorp/zlogin/internal/credential"
	"github.com/zarlcorp/zlogin/internal/prefs"
)

// CredentialStore finds and deletes credentials.
type CredentialStore interface {
	Count(origin, target string) (int, error)
	Find(ctx context.Context, origin, target string) ([]credential.Credential, error)
	Delete(ctx context.Context, id string) error
}

// ExceptionLists holds per-origin preference exceptions.
type ExceptionLists interface {
	IsException(list, origin string) bool
	RemoveException(list, rawURL string) error
}

// Request describes what to burn.
type Request struct {
	Origin      string
	Credentials CredentialStore
	Exceptions  ExceptionLists // nil leaves preferences alone
}

// StepStatus records the outcome of one cascade step.
type StepStatus struct {
	Description string
	Err         error
}

// Result summarizes a completed burn.
type Result struct {
	Origin           string
	CredentialsCount int
	Steps            []StepStatus
}

// HasErrors returns true if any step failed.
func (r Result) HasErrors() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Summary returns a human-readable summary of the burn result.
func (r Result) Summary() string {
	var b strings.Builder

	if r.HasErrors() {
		fmt.Fprintf(&b, "burned %s (with errors)", r.Origin)
	} else {
		fmt.Fprintf(&b, "burned %s", r.Origin)
	}

	for _, s := range r.Steps {
		if s.Err != nil {
			fmt.Fprintf(&b, "\n- %s: %v", s.Description, s.Err)
		} else {
			fmt.Fprintf(&b, "\n- %s", s.Description)
		}
	}

	return b.String()
}

var exceptionLists = []struct {
	name  string
	label string
}{
	{prefs.ExceptionList, "protection exception"},
	{prefs.AutoLoginExceptions, "auto-login exception"},
}

// Plan returns a list of human-readable descriptions of what will happen.
// It never unlocks the credential store.
func Plan(req Request) []string {
	origin := prefs.CanonicalOrigin(req.Origin)
	var steps []string

	n, err := req.Credentials.Count(origin, "")
	if err == nil {
		steps = append(steps, fmt.Sprintf("delete credentials for %s (%d)", origin, n))
	} else {
		steps = append(steps, "delete credentials for "+origin)
	}

	if req.Exceptions != nil {
		for _, l := range exceptionLists {
			if req.Exceptions.IsException(l.name, origin) {
				steps = append(steps, "remove "+l.label)
			}
		}
	}

	return steps
}

// Execute runs the burn cascade. Each step is attempted regardless of
// whether previous steps failed.
func Execute(ctx context.Context, req Request) Result {
	origin := prefs.CanonicalOrigin(req.Origin)
	result := Result{Origin: origin}

	result.deleteCredentials(ctx, req.Credentials, origin)

	if req.Exceptions != nil {
		for _, l := range exceptionLists {
			if req.Exceptions.IsException(l.name, origin) {
				result.removeException(req.Exceptions, l.name, l.label, origin)
			}
		}
	}

	return result
}

func (r *Result) deleteCredentials(ctx context.Context, store CredentialStore, origin string) {
	creds, err := store.Find(ctx, origin, "")
	if err != nil {
		r.Steps = append(r.Steps, StepStatus{
			Description: "delete credentials",
			Err:         fmt.Errorf("find credentials: %w", err),
		})
		return
	}

	var errs []string
	deleted := 0
	for i := range creds {
		c := &creds[i]
		err := store.Delete(ctx, c.ID)
		c.Erase()
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", c.ID, err))
			continue
		}
		deleted++
	}

	r.CredentialsCount = deleted

	if len(errs) > 0 {
		r.Steps = append(r.Steps, StepStatus{
			Description: fmt.Sprintf("deleted %d/%d credentials", deleted, len(creds)),
			Err:         fmt.Errorf("%s", strings.Join(errs, "; ")),
		})
		return
	}

	r.Steps = append(r.Steps, StepStatus{
		Description: fmt.Sprintf("deleted %d credentials", deleted),
	})
}

func (r *Result) removeException(lists ExceptionLists, list, label, origin string) {
	if err := lists.RemoveException(list, origin); err != nil {
		r.Steps = append(r.Steps, StepStatus{
			Description: "remove " + label,
			Err:         err,
		})
		return
	}
	r.Steps = append(r.Steps, StepStatus{
		Description: "removed " + label,
	})
}
