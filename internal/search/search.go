// Package search finds logins on a page by matching stored credentials
// against its forms and frames.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/zarlcorp/zlogin/internal/credential"
	"github.com/zarlcorp/zlogin/internal/dom"
	"github.com/zarlcorp/zlogin/internal/fields"
	"github.com/zarlcorp/zlogin/internal/registry"
)

// Store is the credential source. Count must not prompt the user; Find may
// block on a master password prompt.
type Store interface {
	Count(origin, target string) (int, error)
	Find(ctx context.Context, origin, target string) ([]credential.Credential, error)
}

// Options controls a single search pass.
type Options struct {
	// SkipDuplicateActionForms ignores a form whose resolved action equals
	// one already matched in the same document.
	SkipDuplicateActionForms bool
	Highlight                Highlight
}

// Searcher walks windows looking for login forms.
type Searcher struct {
	store Store
	log   *slog.Logger
}

// New returns a searcher reading from store. A nil logger uses the default.
func New(store Store, log *slog.Logger) *Searcher {
	if log == nil {
		log = slog.Default()
	}
	return &Searcher{store: store, log: log}
}

// Search returns the logins found in win and its frames, top document first
// and forms in document order. The frame tree is captured on entry; frames
// that close during the walk are skipped. A store error aborts the whole
// pass and no results are returned.
func (s *Searcher) Search(ctx context.Context, win dom.Window, opts Options) ([]registry.FoundLogin, error) {
	var found []registry.FoundLogin

	for _, w := range dom.Snapshot(win) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		if !dom.Live(w) {
			continue
		}

		got, err := s.searchDocument(ctx, w, opts)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		found = append(found, got...)
	}

	return found, nil
}

func (s *Searcher) searchDocument(ctx context.Context, w dom.Window, opts Options) ([]registry.FoundLogin, error) {
	doc := w.Document()
	loc := doc.URL()
	if loc == nil || loc.Host == "" {
		return nil, nil
	}

	forms := doc.Forms()
	if len(forms) == 0 {
		return nil, nil
	}

	origin := dom.Origin(loc)

	// each stored login for the origin is matched at most once per
	// document; forms after the last match are not searched
	remaining, err := s.store.Count(origin, "")
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", origin, err)
	}
	if remaining == 0 {
		return nil, nil
	}

	var (
		found   []registry.FoundLogin
		matched []string
		byHost  = make(map[string][]credential.Credential)
	)

	for _, form := range forms {
		if remaining <= 0 {
			break
		}

		res, err := dom.ResolveURL(form.Action(), doc.BaseURI())
		if err != nil {
			s.log.Warn("skip form", "origin", origin, "form", form.Index(), "err", err)
			continue
		}
		action := res.URL.String()

		if opts.SkipDuplicateActionForms && slices.Contains(matched, action) {
			continue
		}

		target := dom.Origin(res.URL)
		creds, ok := byHost[target]
		if !ok {
			creds, err = s.store.Find(ctx, origin, target)
			if err != nil {
				return nil, fmt.Errorf("find %s: %w", origin, err)
			}
			byHost[target] = creds
		}

		formMatched := false
		for _, c := range creds {
			m, ok := fields.Classify(form, c.UsernameField, c.PasswordField)
			if !ok {
				continue
			}

			found = append(found, registry.FoundLogin{
				Credential: c,
				Form: registry.FormDescriptor{
					Window: w,
					Form:   form,
					Index:  form.Index(),
					Action: res.URL,
					Method: form.Method(),
				},
				Fields:    m,
				ActionURI: action,
			})
			opts.Highlight.Apply(m.Username, m.Password)
			formMatched = true
			remaining--
		}

		if formMatched {
			matched = append(matched, action)
		}
	}

	if len(found) > 0 {
		s.log.Debug("logins found", "origin", origin, "count", len(found))
	}
	return found, nil
}
