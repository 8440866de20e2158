// Package prefs stores zlogin's user preferences.
//
// Preferences are read from prefs.yaml in the data directory and may be
// overridden per process with ZLOGIN_* environment variables. Changes made
// through Set are persisted and announced to watchers registered by name.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"gopkg.in/yaml.v3"
)

const (
	fileName  = "prefs.yaml"
	envPrefix = "zlogin"
)

// ErrUnknown is returned for a preference name that does not exist.
var ErrUnknown = errors.New("unknown preference")

// Prefs is the full preference set.
type Prefs struct {
	SearchLoginsOnload       bool     `yaml:"searchLoginsOnload" envconfig:"SEARCH_LOGINS_ONLOAD"`
	AutoLogin                bool     `yaml:"autoLogin" envconfig:"AUTO_LOGIN"`
	AutoSubmitForm           bool     `yaml:"autoSubmitForm" envconfig:"AUTO_SUBMIT_FORM"`
	JavascriptProtection     bool     `yaml:"javascriptProtection" envconfig:"JAVASCRIPT_PROTECTION"`
	SkipDuplicateActionForms bool     `yaml:"skipDuplicateActionForms" envconfig:"SKIP_DUPLICATE_ACTION_FORMS"`
	SecureLoginBookmarks     bool     `yaml:"secureLoginBookmarks" envconfig:"SECURE_LOGIN_BOOKMARKS"`
	BookmarkHash             string   `yaml:"bookmarkHash" envconfig:"BOOKMARK_HASH"`
	HighlightColor           string   `yaml:"highlightColor" envconfig:"HIGHLIGHT_COLOR"`
	HighlightOutlineWidth    string   `yaml:"highlightOutlineWidth" envconfig:"HIGHLIGHT_OUTLINE_WIDTH"`
	HighlightOutlineStyle    string   `yaml:"highlightOutlineStyle" envconfig:"HIGHLIGHT_OUTLINE_STYLE"`
	HighlightOutlineRadius   string   `yaml:"highlightOutlineRadius" envconfig:"HIGHLIGHT_OUTLINE_RADIUS"`
	HighlightStyle           string   `yaml:"highlightStyle" envconfig:"HIGHLIGHT_STYLE"`
	ExceptionList            []string `yaml:"exceptionList" envconfig:"EXCEPTION_LIST"`
	AutoLoginExceptions      []string `yaml:"autoLoginExceptions" envconfig:"AUTO_LOGIN_EXCEPTIONS"`
	ShowDoorhangerLogin      bool     `yaml:"showDoorhangerLogin" envconfig:"SHOW_DOORHANGER_LOGIN"`
}

// Defaults returns the built-in preference values.
func Defaults() Prefs {
	return Prefs{
		SearchLoginsOnload:       true,
		AutoSubmitForm:           true,
		JavascriptProtection:     true,
		SkipDuplicateActionForms: true,
		SecureLoginBookmarks:     true,
		BookmarkHash:             "#secureLoginBookmark",
		HighlightColor:           "#ff0000",
		HighlightOutlineWidth:    "1px",
		HighlightOutlineStyle:    "solid",
		HighlightOutlineRadius:   "3px",
		ShowDoorhangerLogin:      true,
	}
}

// Manager holds the current preferences.
type Manager struct {
	mu       sync.Mutex
	fs       zfilesystem.ReadWriteFileFS
	stored   Prefs
	cur      Prefs
	watchers map[string][]func(Prefs)
}

// Load reads preferences from fsys, falling back to defaults for anything
// missing, and applies environment overrides. A missing file is not an
// error.
func Load(fsys zfilesystem.ReadWriteFileFS) (*Manager, error) {
	stored := Defaults()

	data, err := fsys.ReadFile(fileName)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &stored); err != nil {
			return nil, fmt.Errorf("load prefs: parse %s: %w", fileName, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("load prefs: read %s: %w", fileName, err)
	}

	stored.ExceptionList = normalizeList(stored.ExceptionList)
	stored.AutoLoginExceptions = normalizeList(stored.AutoLoginExceptions)

	cur := stored.clone()
	if err := envconfig.Process(envPrefix, &cur); err != nil {
		return nil, fmt.Errorf("load prefs: env: %w", err)
	}
	cur.ExceptionList = normalizeList(cur.ExceptionList)
	cur.AutoLoginExceptions = normalizeList(cur.AutoLoginExceptions)

	return &Manager{
		fs:       fsys,
		stored:   stored,
		cur:      cur,
		watchers: make(map[string][]func(Prefs)),
	}, nil
}

// Current returns a copy of the effective preferences.
func (m *Manager) Current() Prefs {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur.clone()
}

// Get returns the named preference formatted as text.
func (m *Manager) Get(name string) (string, error) {
	d, ok := table[name]
	if !ok {
		return "", fmt.Errorf("get %q: %w", name, ErrUnknown)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return d.get(&m.cur), nil
}

// Set parses value into the named preference, persists it and notifies
// watchers of name.
func (m *Manager) Set(name, value string) error {
	d, ok := table[name]
	if !ok {
		return fmt.Errorf("set %q: %w", name, ErrUnknown)
	}

	return m.update(name, func(p *Prefs) error {
		if err := d.set(p, value); err != nil {
			return fmt.Errorf("set %q: %w", name, err)
		}
		return nil
	})
}

// Reset restores the named preference to its default.
func (m *Manager) Reset(name string) error {
	d, ok := table[name]
	if !ok {
		return fmt.Errorf("reset %q: %w", name, ErrUnknown)
	}

	def := Defaults()
	return m.Set(name, d.get(&def))
}

// Watch registers fn to run after the named preference changes. fn runs
// without the manager lock held.
func (m *Manager) Watch(name string, fn func(Prefs)) error {
	if _, ok := table[name]; !ok {
		return fmt.Errorf("watch %q: %w", name, ErrUnknown)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers[name] = append(m.watchers[name], fn)
	return nil
}

// Names returns every preference name, sorted.
func Names() []string {
	out := make([]string, 0, len(table))
	for n := range table {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// update applies fn to both the stored and effective preferences, saves
// and notifies.
func (m *Manager) update(name string, fn func(*Prefs) error) error {
	m.mu.Lock()

	stored := m.stored.clone()
	if err := fn(&stored); err != nil {
		m.mu.Unlock()
		return err
	}
	cur := m.cur.clone()
	if err := fn(&cur); err != nil {
		m.mu.Unlock()
		return err
	}

	if err := m.save(stored); err != nil {
		m.mu.Unlock()
		return err
	}
	m.stored = stored
	m.cur = cur

	watchers := append([]func(Prefs){}, m.watchers[name]...)
	snapshot := m.cur.clone()
	m.mu.Unlock()

	for _, w := range watchers {
		w(snapshot)
	}
	return nil
}

func (m *Manager) save(p Prefs) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("save prefs: marshal: %w", err)
	}
	if err := m.fs.WriteFile(fileName, data, 0o600); err != nil {
		return fmt.Errorf("save prefs: write %s: %w", fileName, err)
	}
	return nil
}

func (p Prefs) clone() Prefs {
	c := p
	c.ExceptionList = append([]string(nil), p.ExceptionList...)
	c.AutoLoginExceptions = append([]string(nil), p.AutoLoginExceptions...)
	return c
}
