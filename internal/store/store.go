// Package store provides the encrypted credential store.
//
// Records live in an encrypted zstore collection. A plaintext index of
// origins lets callers ask how many logins exist for a site without the
// master password; the store is only unlocked when records are read or
// written.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/core/pkg/zstore"
	"github.com/zarlcorp/zlogin/internal/credential"
)

const (
	saltFile       = "salt"
	indexFile      = "origins.json"
	credentialsCol = "credentials"
)

var (
	// ErrNotFound is returned when a credential does not exist.
	ErrNotFound = errors.New("credential not found")
	// ErrLocked is returned when the store cannot be unlocked.
	ErrLocked = errors.New("store locked")
	// ErrCanceled is returned when the user dismisses the master password
	// prompt.
	ErrCanceled = errors.New("unlock canceled")
)

// Unlocker obtains the master password. create is true when the store does
// not exist yet and the password will initialize it.
type Unlocker interface {
	Unlock(ctx context.Context, create bool) (string, error)
}

// UnlockFunc adapts a function to Unlocker.
type UnlockFunc func(ctx context.Context, create bool) (string, error)

// Unlock calls f.
func (f UnlockFunc) Unlock(ctx context.Context, create bool) (string, error) {
	return f(ctx, create)
}

type indexEntry struct {
	ID           string `json:"id"`
	ActionOrigin string `json:"action_origin,omitempty"`
}

// Store manages credentials on a filesystem.
type Store struct {
	mu       sync.Mutex
	fs       zfilesystem.ReadWriteFileFS
	unlocker Unlocker

	db    *zstore.Store
	creds *zstore.Collection[credential.Credential]

	// origin -> entries; read without unlocking
	index map[string][]indexEntry
}

// Open prepares a store on fsys. It reads the origin index but does not
// unlock; u is consulted the first time records are needed.
func Open(fsys zfilesystem.ReadWriteFileFS, u Unlocker) (*Store, error) {
	s := &Store{fs: fsys, unlocker: u}
	if err := s.loadIndex(); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

// IsFirstRun reports whether the encrypted store has never been created.
func (s *Store) IsFirstRun() bool {
	_, err := s.fs.ReadFile(saltFile)
	return err != nil
}

// Unlocked reports whether the master password has been supplied.
func (s *Store) Unlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

// Count returns the number of credentials for origin that submit to target.
// An empty target counts every credential for origin. It never prompts.
func (s *Store) Count(origin, target string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, e := range s.index[normalize(origin)] {
		if target == "" || e.ActionOrigin == "" || strings.EqualFold(e.ActionOrigin, target) {
			n++
		}
	}
	return n, nil
}

// Origins returns the indexed origins, sorted.
func (s *Store) Origins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.index))
	for o := range s.index {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// Find returns the credentials for origin that submit to target, oldest
// first. It unlocks the store if needed, which may block on the master
// password prompt.
func (s *Store) Find(ctx context.Context, origin, target string) ([]credential.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.unlock(ctx); err != nil {
		return nil, fmt.Errorf("find credentials: %w", err)
	}

	all, err := s.creds.List()
	if err != nil {
		return nil, fmt.Errorf("find credentials: %w", err)
	}

	var out []credential.Credential
	for _, c := range all {
		if c.Matches(origin, target) {
			out = append(out, c)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

// List returns every credential, newest first.
func (s *Store) List(ctx context.Context) ([]credential.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.unlock(ctx); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	all, err := s.creds.List()
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

// Get returns a single credential by ID.
func (s *Store) Get(ctx context.Context, id string) (credential.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.unlock(ctx); err != nil {
		return credential.Credential{}, fmt.Errorf("get credential: %w", err)
	}

	if !s.indexed(id) {
		return credential.Credential{}, ErrNotFound
	}

	c, err := s.creds.Get(id)
	if err != nil {
		return credential.Credential{}, fmt.Errorf("get credential %s: %w", id, err)
	}
	return c, nil
}

// Add stores c, assigning an ID and timestamps when missing, and returns the
// stored record.
func (s *Store) Add(ctx context.Context, c credential.Credential) (credential.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.unlock(ctx); err != nil {
		return credential.Credential{}, fmt.Errorf("add credential: %w", err)
	}

	c.Origin = normalize(c.Origin)
	c.ActionOrigin = normalize(c.ActionOrigin)
	if c.Origin == "" {
		return credential.Credential{}, errors.New("add credential: origin is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if err := s.creds.Put(c.ID, c); err != nil {
		return credential.Credential{}, fmt.Errorf("add credential: %w", err)
	}

	s.removeFromIndex(c.ID)
	s.index[c.Origin] = append(s.index[c.Origin], indexEntry{ID: c.ID, ActionOrigin: c.ActionOrigin})
	if err := s.saveIndex(); err != nil {
		return credential.Credential{}, fmt.Errorf("add credential: %w", err)
	}

	return c, nil
}

// Delete removes a credential by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.unlock(ctx); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	if !s.indexed(id) {
		return ErrNotFound
	}

	if err := s.creds.Delete(id); err != nil {
		return fmt.Errorf("delete credential %s: %w", id, err)
	}

	s.removeFromIndex(id)
	if err := s.saveIndex(); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Close locks the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	s.db.Close()
	s.db = nil
	s.creds = nil
	return nil
}

// unlock opens the encrypted store. Callers hold s.mu.
func (s *Store) unlock(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if s.unlocker == nil {
		return ErrLocked
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	_, statErr := s.fs.ReadFile(saltFile)
	pass, err := s.unlocker.Unlock(ctx, statErr != nil)
	if err != nil {
		if errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		return fmt.Errorf("%w: %w", ErrLocked, err)
	}

	key := []byte(pass)
	db, err := zstore.Open(s.fs, key)
	zcrypto.Erase(key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLocked, err)
	}

	col, err := zstore.NewCollection[credential.Credential](db, credentialsCol)
	if err != nil {
		db.Close()
		return fmt.Errorf("%w: %w", ErrLocked, err)
	}

	s.db = db
	s.creds = col
	return nil
}

func (s *Store) loadIndex() error {
	s.index = make(map[string][]indexEntry)

	data, err := s.fs.ReadFile(indexFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read index: %w", err)
	}

	if err := json.Unmarshal(data, &s.index); err != nil {
		return fmt.Errorf("unmarshal index: %w", err)
	}
	return nil
}

func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := s.fs.WriteFile(indexFile, data, 0o600); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

func (s *Store) indexed(id string) bool {
	for _, entries := range s.index {
		for _, e := range entries {
			if e.ID == id {
				return true
			}
		}
	}
	return false
}

func (s *Store) removeFromIndex(id string) {
	for origin, entries := range s.index {
		kept := entries[:0]
		for _, e := range entries {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(s.index, origin)
			continue
		}
		s.index[origin] = kept
	}
}

func sortOldestFirst(cs []credential.Credential) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].ID < cs[j].ID
		}
		return cs[i].CreatedAt.Before(cs[j].CreatedAt)
	})
}

// normalize lower-cases an origin and strips a trailing slash.
func normalize(origin string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
}
