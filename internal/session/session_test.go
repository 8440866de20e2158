package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zlogin/internal/credential"
	"github.com/zarlcorp/zlogin/internal/dom"
	"github.com/zarlcorp/zlogin/internal/dom/domtest"
	"github.com/zarlcorp/zlogin/internal/prefs"
)

type fakeStore struct {
	creds   []credential.Credential
	findErr error
	finds   int
	onFind  func()
}

func (f *fakeStore) Count(origin, target string) (int, error) {
	var n int
	for _, c := range f.creds {
		if c.Matches(origin, target) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Find(_ context.Context, origin, target string) ([]credential.Credential, error) {
	f.finds++
	if f.onFind != nil {
		hook := f.onFind
		f.onFind = nil
		hook()
	}
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

type fakeUI struct {
	pick     int
	pickErr  error
	confirm  bool
	selects  [][]string
	titles   []string
	confirms []string
	statuses []bool
	notes    []string
}

func (u *fakeUI) Select(_ context.Context, title string, items []string) (int, error) {
	u.titles = append(u.titles, title)
	u.selects = append(u.selects, items)
	return u.pick, u.pickErr
}

func (u *fakeUI) Confirm(_ context.Context, msg string) (bool, error) {
	u.confirms = append(u.confirms, msg)
	return u.confirm, nil
}

func (u *fakeUI) Status(found bool) { u.statuses = append(u.statuses, found) }
func (u *fakeUI) Notify(msg string) { u.notes = append(u.notes, msg) }

type harness struct {
	s     *Session
	store *fakeStore
	ui    *fakeUI
	nav   *domtest.Navigator
	prefs *prefs.Manager
}

func newHarness(t *testing.T, creds ...credential.Credential) harness {
	t.Helper()

	pm, err := prefs.Load(zfilesystem.NewMemFS())
	if err != nil {
		t.Fatalf("load prefs: %v", err)
	}

	h := harness{
		store: &fakeStore{creds: creds},
		ui:    &fakeUI{},
		nav:   &domtest.Navigator{},
		prefs: pm,
	}

	s, err := New(Config{Store: h.store, Prefs: pm, Navigator: h.nav, UI: h.ui})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	h.s = s
	return h
}

func (h harness) set(t *testing.T, name, value string) {
	t.Helper()
	if err := h.prefs.Set(name, value); err != nil {
		t.Fatalf("set %s: %v", name, err)
	}
}

func cred(origin, user string) credential.Credential {
	return credential.Credential{Origin: origin, Username: user, Password: "pw-" + user}
}

type page struct {
	win  *domtest.Window
	user *domtest.Element
	pass *domtest.Element
	form *domtest.Form
}

func loginPage(rawURL string) page {
	user := domtest.Input("u", "text")
	pass := domtest.Input("p", "password")
	form := domtest.NewForm(0, "/session", user, pass)
	form.MethodAttr = "post"
	return page{
		win:  domtest.NewWindow(domtest.NewDocument(rawURL, form)),
		user: user,
		pass: pass,
		form: form,
	}
}

func TestOnLoadSearchesAndReports(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"))
	p := loginPage("https://example.com/login")

	if err := h.s.OnLoad(context.Background(), p.win); err != nil {
		t.Fatalf("on load: %v", err)
	}

	if got := len(h.s.Candidates()); got != 1 {
		t.Fatalf("candidates = %d, want 1", got)
	}
	if diff := cmp.Diff([]bool{true}, h.ui.statuses); diff != "" {
		t.Errorf("statuses (-want +got):\n%s", diff)
	}
	if len(h.ui.notes) != 1 {
		t.Errorf("notifications = %v, want one", h.ui.notes)
	}
	if p.pass.Style == "" {
		t.Error("password field not highlighted")
	}
}

func TestOnLoadNoDoorhanger(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"))
	h.set(t, prefs.ShowDoorhangerLogin, "false")

	if err := h.s.OnLoad(context.Background(), loginPage("https://example.com/").win); err != nil {
		t.Fatalf("on load: %v", err)
	}
	if len(h.ui.notes) != 0 {
		t.Errorf("notifications = %v, want none", h.ui.notes)
	}
}

func TestLoginSingleCandidateProtected(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"))
	p := loginPage("https://example.com/login")

	if err := h.s.Search(context.Background(), p.win); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := h.s.Login(context.Background(), p.win, LoginOptions{}); err != nil {
		t.Fatalf("login: %v", err)
	}

	if len(h.ui.selects) != 0 {
		t.Error("prompted with a single candidate")
	}
	if len(h.nav.Requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(h.nav.Requests))
	}
	if got := h.nav.Requests[0].Body; got != "u=alice&p=pw-alice" {
		t.Errorf("body = %q", got)
	}
	if p.user.Writes != 0 || p.pass.Writes != 0 {
		t.Error("protected login wrote to the dom")
	}
	if len(h.s.Candidates()) != 0 {
		t.Error("registry not reset after login")
	}
}

func TestLoginExceptionUsesNormal(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"))
	if err := h.prefs.AddException(prefs.ExceptionList, "https://example.com"); err != nil {
		t.Fatalf("add exception: %v", err)
	}
	p := loginPage("https://example.com/login")

	if err := h.s.Search(context.Background(), p.win); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := h.s.Login(context.Background(), p.win, LoginOptions{}); err != nil {
		t.Fatalf("login: %v", err)
	}

	if len(h.nav.Requests) != 0 {
		t.Error("protected request sent for excepted origin")
	}
	if p.user.Value() != "alice" || p.pass.Value() != "pw-alice" {
		t.Errorf("fields = %q / %q", p.user.Value(), p.pass.Value())
	}
	if p.form.Submits != 1 {
		t.Errorf("submits = %d, want 1", p.form.Submits)
	}
}

func twoFormPage() page {
	p := loginPage("https://example.com/")
	second := domtest.NewForm(1, "/other", domtest.Input("u2", "text"), domtest.Input("p2", "password"))
	second.MethodAttr = "post"
	doc := p.win.Doc
	doc.FormList = append(doc.FormList, second)
	return p
}

func TestLoginPromptsWithFormIndex(t *testing.T) {
	alice := cred("https://example.com", "alice")
	alice.UsernameField, alice.PasswordField = "u", "p"
	bob := cred("https://example.com", "bob")
	bob.UsernameField, bob.PasswordField = "u2", "p2"
	h := newHarness(t, alice, bob)
	h.ui.pick = 1
	p := twoFormPage()

	if err := h.s.Search(context.Background(), p.win); err != nil {
		t.Fatalf("search: %v", err)
	}
	if !h.s.ShowFormIndex() {
		t.Fatal("ShowFormIndex = false with two forms")
	}
	if err := h.s.Login(context.Background(), p.win, LoginOptions{}); err != nil {
		t.Fatalf("login: %v", err)
	}

	want := []string{"alice  (0)", "bob  (1)"}
	if len(h.ui.selects) != 1 {
		t.Fatalf("select prompts = %d, want 1", len(h.ui.selects))
	}
	if diff := cmp.Diff(want, h.ui.selects[0]); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
	if h.ui.titles[0] != "Select a login  (form index)" {
		t.Errorf("title = %q", h.ui.titles[0])
	}

	if got := h.nav.Requests[0].Body; got != "u2=bob&p2=pw-bob" {
		t.Errorf("body = %q, want the second form's fields", got)
	}
}

func TestLoginCancelHasNoSideEffects(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"), cred("https://example.com", "bob"))
	h.ui.pickErr = ErrCanceled
	h.set(t, prefs.JavascriptProtection, "false")
	p := loginPage("https://example.com/")

	if err := h.s.Search(context.Background(), p.win); err != nil {
		t.Fatalf("search: %v", err)
	}
	err := h.s.Login(context.Background(), p.win, LoginOptions{})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}

	if p.user.Writes != 0 || p.pass.Writes != 0 || p.form.Submits != 0 || len(h.nav.Requests) != 0 {
		t.Error("canceled login touched the page")
	}
	if len(h.s.Candidates()) != 0 {
		t.Error("registry not reset after cancel")
	}
}

func TestLoginExplicitIndex(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"), cred("https://example.com", "bob"))
	p := loginPage("https://example.com/")

	if err := h.s.Search(context.Background(), p.win); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := h.s.Login(context.Background(), p.win, LoginOptions{Index: 1, HasIndex: true}); err != nil {
		t.Fatalf("login: %v", err)
	}

	if len(h.ui.selects) != 0 {
		t.Error("prompted despite explicit index")
	}
	if got := h.nav.Requests[0].Body; got != "u=bob&p=pw-bob" {
		t.Errorf("body = %q", got)
	}
}

func TestLoginOutOfRangeIndexPrompts(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"), cred("https://example.com", "bob"))
	p := loginPage("https://example.com/")

	if err := h.s.Search(context.Background(), p.win); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := h.s.Login(context.Background(), p.win, LoginOptions{Index: 7, HasIndex: true}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(h.ui.selects) != 1 {
		t.Errorf("select prompts = %d, want 1", len(h.ui.selects))
	}
}

func TestLoginClosedFrameIsNoop(t *testing.T) {
	h := newHarness(t, cred("https://frame.example.com", "alice"))

	top := domtest.NewWindow(domtest.NewDocument("https://example.com/"))
	user := domtest.Input("u", "text")
	pass := domtest.Input("p", "password")
	frame := top.AddFrame(domtest.NewDocument("https://frame.example.com/", domtest.NewForm(0, "", user, pass)))

	if err := h.s.Search(context.Background(), top); err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(h.s.Candidates()) != 1 {
		t.Fatal("frame login not found")
	}

	frame.Close()

	if err := h.s.Login(context.Background(), top, LoginOptions{}); !errors.Is(err, ErrNoLogins) {
		t.Fatalf("err = %v, want ErrNoLogins after frame closed", err)
	}
	if user.Writes != 0 || pass.Writes != 0 || len(h.nav.Requests) != 0 {
		t.Error("closed frame was touched")
	}
}

func TestLoginSearchesWhenOnloadSearchOff(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"))
	h.set(t, prefs.SearchLoginsOnload, "false")
	p := loginPage("https://example.com/")

	if err := h.s.OnLoad(context.Background(), p.win); err != nil {
		t.Fatalf("on load: %v", err)
	}
	if h.store.finds != 0 {
		t.Fatal("searched on load while disabled")
	}

	if err := h.s.Login(context.Background(), nil, LoginOptions{}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(h.nav.Requests) != 1 {
		t.Errorf("requests = %d, want 1", len(h.nav.Requests))
	}
}

func TestSearchStoreErrorClearsRegistry(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"))
	p := loginPage("https://example.com/")

	if err := h.s.Search(context.Background(), p.win); err != nil {
		t.Fatalf("search: %v", err)
	}

	boom := errors.New("master password dismissed")
	h.store.findErr = boom

	if err := h.s.Search(context.Background(), p.win); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want store error", err)
	}
	if len(h.s.Candidates()) != 0 {
		t.Error("registry kept entries after failed search")
	}
	if last := h.ui.statuses[len(h.ui.statuses)-1]; last {
		t.Error("status still shows logins after failed search")
	}
}

func TestSupersededSearchIsDiscarded(t *testing.T) {
	h := newHarness(t,
		cred("https://old.example.com", "stale"),
		cred("https://new.example.com", "fresh"),
	)
	oldPage := loginPage("https://old.example.com/")
	newPage := loginPage("https://new.example.com/")

	// a navigation lands while the first search is waiting on the store
	h.store.onFind = func() {
		if err := h.s.Search(context.Background(), newPage.win); err != nil {
			t.Errorf("nested search: %v", err)
		}
	}

	if err := h.s.Search(context.Background(), oldPage.win); err != nil {
		t.Fatalf("search: %v", err)
	}

	got := h.s.Candidates()
	if len(got) != 1 || got[0].Credential.Username != "fresh" {
		t.Fatalf("candidates = %+v, want only the newer search", got)
	}
}

func TestFrameSearchReplacesOnlyThatFrame(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "top"), cred("https://frame.example.com", "framed"))

	topPage := loginPage("https://example.com/")
	frameDoc := domtest.NewDocument("https://frame.example.com/",
		domtest.NewForm(0, "", domtest.Input("u", "text"), domtest.Input("p", "password")))
	frame := topPage.win.AddFrame(frameDoc)

	if err := h.s.Search(context.Background(), topPage.win); err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(h.s.Candidates()) != 2 {
		t.Fatalf("candidates = %d, want 2", len(h.s.Candidates()))
	}

	// the frame navigates to a page without forms
	frameDoc.FormList = nil
	if err := h.s.Search(context.Background(), frame); err != nil {
		t.Fatalf("frame search: %v", err)
	}

	got := h.s.Candidates()
	if len(got) != 1 || got[0].Credential.Username != "top" {
		t.Fatalf("candidates = %+v, want only the top entry", got)
	}
}

func TestAutoLogin(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		exception bool
		wantLogin bool
	}{
		{"plain page", "https://example.com/", false, true},
		{"excepted origin", "https://example.com/", true, false},
		{"bookmark url", "https://example.com/#secureLoginBookmark", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, cred("https://example.com", "alice"))
			h.set(t, prefs.AutoLogin, "true")
			if tt.exception {
				if err := h.prefs.AddException(prefs.AutoLoginExceptions, "https://example.com"); err != nil {
					t.Fatalf("add exception: %v", err)
				}
			}

			p := loginPage(tt.url)
			if err := h.s.OnLoad(context.Background(), p.win); err != nil {
				t.Fatalf("on load: %v", err)
			}

			if got := len(h.nav.Requests) == 1; got != tt.wantLogin {
				t.Errorf("logged in = %v, want %v", got, tt.wantLogin)
			}
		})
	}
}

func TestNoAutoLoginAfterOwnSubmission(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"))
	h.set(t, prefs.AutoLogin, "true")

	// the server answers the login with the same form again
	next := loginPage("https://example.com/session")
	loads := 0
	var s *Session
	nav := &loadingNavigator{rec: h.nav, onNavigate: func(ctx context.Context) {
		loads++
		if err := s.OnLoad(ctx, next.win); err != nil {
			t.Errorf("nested on load: %v", err)
		}
	}}
	s, err := New(Config{Store: h.store, Prefs: h.prefs, Navigator: nav, UI: h.ui})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	if err := s.OnLoad(context.Background(), loginPage("https://example.com/").win); err != nil {
		t.Fatalf("on load: %v", err)
	}
	if loads != 1 {
		t.Errorf("navigations = %d, want 1", loads)
	}
	if len(s.Candidates()) != 1 {
		t.Error("candidates of the new page were dropped")
	}
}

type loadingNavigator struct {
	rec        *domtest.Navigator
	onNavigate func(ctx context.Context)
}

func (n *loadingNavigator) Navigate(ctx context.Context, req dom.Request) error {
	if err := n.rec.Navigate(ctx, req); err != nil {
		return err
	}
	n.onNavigate(ctx)
	return nil
}

func TestBookmarkLoginUsesIndex(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"), cred("https://example.com", "bob"))
	p := loginPage("https://example.com/#secureLoginBookmark1")

	if err := h.s.OnLoad(context.Background(), p.win); err != nil {
		t.Fatalf("on load: %v", err)
	}

	if len(h.ui.selects) != 0 {
		t.Error("prompted for bookmark login with index")
	}
	if len(h.nav.Requests) != 1 || h.nav.Requests[0].Body != "u=bob&p=pw-bob" {
		t.Errorf("requests = %+v", h.nav.Requests)
	}
}

func TestFailedBookmarkAsksForConfirmation(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"))
	p := loginPage("https://example.com/#secuWRONG")

	if err := h.s.OnLoad(context.Background(), p.win); err != nil {
		t.Fatalf("on load: %v", err)
	}
	if len(h.nav.Requests) != 0 {
		t.Fatal("failed bookmark logged in")
	}

	// declined
	err := h.s.Login(context.Background(), p.win, LoginOptions{})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	if len(h.ui.confirms) != 1 || h.ui.confirms[0] != "Log in to https://example.com/session?" {
		t.Errorf("confirms = %v", h.ui.confirms)
	}

	// accepted, and the flag clears afterwards
	h.ui.confirm = true
	if err := h.s.Search(context.Background(), p.win); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := h.s.Login(context.Background(), p.win, LoginOptions{}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := h.s.Search(context.Background(), p.win); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := h.s.Login(context.Background(), p.win, LoginOptions{}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(h.ui.confirms) != 2 {
		t.Errorf("confirms = %d, want 2", len(h.ui.confirms))
	}
}

func TestHighlightReappliedOnPrefChange(t *testing.T) {
	h := newHarness(t, cred("https://example.com", "alice"))
	p := loginPage("https://example.com/")

	if err := h.s.Search(context.Background(), p.win); err != nil {
		t.Fatalf("search: %v", err)
	}
	before := p.pass.Style

	h.set(t, prefs.HighlightColor, "#00ff00")

	if p.pass.Style == before {
		t.Fatalf("style unchanged: %q", p.pass.Style)
	}
	if p.user.Style != p.pass.Style {
		t.Error("username and password styled differently")
	}
}

func TestEnablingBookmarksRandomizesHash(t *testing.T) {
	h := newHarness(t)
	h.set(t, prefs.SecureLoginBookmarks, "false")
	h.set(t, prefs.SecureLoginBookmarks, "true")

	hash := h.prefs.Current().BookmarkHash
	if hash == prefs.DefaultBookmarkHash || len(hash) < 5 || hash[:4] != "#slb" {
		t.Errorf("bookmark hash = %q, want a random #slb anchor", hash)
	}
}
