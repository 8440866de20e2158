package search

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zarlcorp/zlogin/internal/credential"
	"github.com/zarlcorp/zlogin/internal/dom/domtest"
	"github.com/zarlcorp/zlogin/internal/registry"
)

type fakeStore struct {
	creds     []credential.Credential
	findErr   error
	counts    []string
	findCalls []string
}

func (f *fakeStore) Count(origin, target string) (int, error) {
	f.counts = append(f.counts, origin)
	var n int
	for _, c := range f.creds {
		if c.Matches(origin, target) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Find(_ context.Context, origin, target string) ([]credential.Credential, error) {
	f.findCalls = append(f.findCalls, origin+" "+target)
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []credential.Credential
	for _, c := range f.creds {
		if c.Matches(origin, target) {
			out = append(out, c)
		}
	}
	return out, nil
}

func cred(origin, user string) credential.Credential {
	return credential.Credential{Origin: origin, Username: user, Password: "pw-" + user}
}

func loginForm(idx int, action string) *domtest.Form {
	return domtest.NewForm(idx, action,
		domtest.Input("user", "text"),
		domtest.Input("pass", "password"),
	)
}

type entry struct {
	User   string
	Form   int
	Action string
}

func summarize(found []registry.FoundLogin) []entry {
	var out []entry
	for _, f := range found {
		out = append(out, entry{User: f.Credential.Username, Form: f.Form.Index, Action: f.ActionURI})
	}
	return out
}

func TestSearchZeroCountNeverFinds(t *testing.T) {
	store := &fakeStore{creds: []credential.Credential{cred("https://other.test", "x")}}
	win := domtest.NewWindow(domtest.NewDocument("https://example.com/login", loginForm(0, "")))

	found, err := New(store, nil).Search(context.Background(), win, Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("found %d logins, want 0", len(found))
	}
	if len(store.findCalls) != 0 {
		t.Errorf("Find called %d times with zero count", len(store.findCalls))
	}
}

func TestSearchOrderTopThenFrames(t *testing.T) {
	store := &fakeStore{creds: []credential.Credential{
		cred("https://example.com", "alice"),
		cred("https://example.com", "bob"),
		cred("https://frame.example.com", "carol"),
	}}

	top := domtest.NewWindow(domtest.NewDocument("https://example.com/",
		domtest.NewForm(0, "/search", domtest.Input("q", "text")),
		loginForm(1, "/a"),
		loginForm(2, "/b"),
	))
	top.AddFrame(domtest.NewDocument("https://frame.example.com/", loginForm(0, "")))

	found, err := New(store, nil).Search(context.Background(), top, Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	want := []entry{
		{"alice", 1, "https://example.com/a"},
		{"bob", 1, "https://example.com/a"},
		{"carol", 0, "https://frame.example.com/"},
	}
	if diff := cmp.Diff(want, summarize(found)); diff != "" {
		t.Errorf("found mismatch (-want +got):\n%s", diff)
	}

	for _, f := range found {
		if f.Fields.Password == nil {
			t.Fatal("found login without password field")
		}
	}
}

func TestSearchSkipDuplicateActionForms(t *testing.T) {
	// bob's hints match no field, so one match is left after the first form
	bob := cred("https://example.com", "bob")
	bob.UsernameField, bob.PasswordField = "login", "secret"
	store := &fakeStore{creds: []credential.Credential{cred("https://example.com", "alice"), bob}}

	doc := func() *domtest.Document {
		return domtest.NewDocument("https://example.com/",
			loginForm(0, "https://example.com/session"),
			loginForm(1, "/session"),
		)
	}

	tests := []struct {
		name string
		skip bool
		want int
	}{
		{"skip", true, 1},
		{"keep", false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			win := domtest.NewWindow(doc())
			found, err := New(store, nil).Search(context.Background(), win, Options{SkipDuplicateActionForms: tt.skip})
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(found) != tt.want {
				t.Fatalf("found %d, want %d", len(found), tt.want)
			}
			if found[0].Form.Index != 0 {
				t.Errorf("first form index = %d, want 0", found[0].Form.Index)
			}
		})
	}
}

func TestSearchStopsWhenEveryLoginMatched(t *testing.T) {
	store := &fakeStore{creds: []credential.Credential{cred("https://example.com", "alice")}}
	header := loginForm(1, "/quick")
	win := domtest.NewWindow(domtest.NewDocument("https://example.com/",
		loginForm(0, "/session"),
		header,
	))

	found, err := New(store, nil).Search(context.Background(), win, Options{SkipDuplicateActionForms: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	want := []entry{{"alice", 0, "https://example.com/session"}}
	if diff := cmp.Diff(want, summarize(found)); diff != "" {
		t.Errorf("found mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchBudgetIsPerDocument(t *testing.T) {
	store := &fakeStore{creds: []credential.Credential{cred("https://example.com", "alice")}}
	top := domtest.NewWindow(domtest.NewDocument("https://example.com/", loginForm(0, "")))
	top.AddFrame(domtest.NewDocument("https://example.com/frame", loginForm(0, "")))

	found, err := New(store, nil).Search(context.Background(), top, Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 2 {
		t.Errorf("found %d, want one per document", len(found))
	}
}

func TestSearchSkipsClosedFrames(t *testing.T) {
	store := &fakeStore{creds: []credential.Credential{
		cred("https://example.com", "alice"),
		cred("https://frame.example.com", "carol"),
	}}

	top := domtest.NewWindow(domtest.NewDocument("https://example.com/", loginForm(0, "")))
	frame := top.AddFrame(domtest.NewDocument("https://frame.example.com/", loginForm(0, "")))
	frame.Close()

	found, err := New(store, nil).Search(context.Background(), top, Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Credential.Username != "alice" {
		t.Errorf("found = %+v, want only alice", summarize(found))
	}
}

func TestSearchMalformedActionSkipped(t *testing.T) {
	store := &fakeStore{creds: []credential.Credential{cred("https://example.com", "alice")}}
	win := domtest.NewWindow(domtest.NewDocument("https://example.com/",
		loginForm(0, "http://[::1"),
		loginForm(1, "/ok"),
	))

	found, err := New(store, nil).Search(context.Background(), win, Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Form.Index != 1 {
		t.Errorf("found = %+v, want form 1 only", summarize(found))
	}
}

func TestSearchStoreErrorAborts(t *testing.T) {
	errCanceled := errors.New("prompt dismissed")
	store := &fakeStore{
		creds:   []credential.Credential{cred("https://example.com", "alice")},
		findErr: errCanceled,
	}
	win := domtest.NewWindow(domtest.NewDocument("https://example.com/", loginForm(0, "")))

	found, err := New(store, nil).Search(context.Background(), win, Options{})
	if !errors.Is(err, errCanceled) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
	if found != nil {
		t.Errorf("found = %v, want nil on error", found)
	}
}

func TestSearchPassesActionOrigin(t *testing.T) {
	store := &fakeStore{creds: []credential.Credential{cred("https://example.com", "alice")}}
	win := domtest.NewWindow(domtest.NewDocument("https://example.com/",
		loginForm(0, "https://auth.example.com/login"),
		loginForm(1, "https://auth.example.com/other"),
	))

	if _, err := New(store, nil).Search(context.Background(), win, Options{}); err != nil {
		t.Fatalf("search: %v", err)
	}

	want := []string{"https://example.com https://auth.example.com"}
	if diff := cmp.Diff(want, store.findCalls); diff != "" {
		t.Errorf("find calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchIdempotent(t *testing.T) {
	store := &fakeStore{creds: []credential.Credential{cred("https://example.com", "alice")}}
	win := domtest.NewWindow(domtest.NewDocument("https://example.com/", loginForm(0, ""), loginForm(1, "/x")))
	s := New(store, nil)

	first, err := s.Search(context.Background(), win, Options{})
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := s.Search(context.Background(), win, Options{})
	if err != nil {
		t.Fatalf("second search: %v", err)
	}

	if diff := cmp.Diff(summarize(first), summarize(second)); diff != "" {
		t.Errorf("repeat search differs (-first +second):\n%s", diff)
	}
}

func TestSearchHighlightsMatches(t *testing.T) {
	store := &fakeStore{creds: []credential.Credential{cred("https://example.com", "alice")}}
	user := domtest.Input("user", "text")
	pass := domtest.Input("pass", "password")
	other := domtest.Input("q", "search")
	win := domtest.NewWindow(domtest.NewDocument("https://example.com/",
		domtest.NewForm(0, "", user, pass),
		domtest.NewForm(1, "/s", other),
	))

	h := Highlight{Color: "#ff0000", Width: "1px", Style: "solid", Radius: "3px"}
	if _, err := New(store, nil).Search(context.Background(), win, Options{Highlight: h}); err != nil {
		t.Fatalf("search: %v", err)
	}

	want := h.CSS()
	if user.Style != want || pass.Style != want {
		t.Errorf("styles = %q / %q, want %q", user.Style, pass.Style, want)
	}
	if other.Style != "" {
		t.Errorf("unmatched field styled: %q", other.Style)
	}
}

func TestSearchContextCanceled(t *testing.T) {
	store := &fakeStore{creds: []credential.Credential{cred("https://example.com", "alice")}}
	win := domtest.NewWindow(domtest.NewDocument("https://example.com/", loginForm(0, "")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(store, nil).Search(ctx, win, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
