package dispatch

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zarlcorp/zlogin/internal/credential"
	"github.com/zarlcorp/zlogin/internal/dom/domtest"
	"github.com/zarlcorp/zlogin/internal/fields"
	"github.com/zarlcorp/zlogin/internal/formdata"
)

func TestBuildPayload(t *testing.T) {
	user := domtest.Input("login", "email")
	pass := domtest.Input("pw", "password").WithValue("leaked?")
	c := credential.Credential{Username: "a@b.c", Password: "pa ss"}
	m := fields.Match{Username: user, Password: pass}

	tests := []struct {
		name string
		els  []*domtest.Element
		imgs []*domtest.Element
		want []formdata.Pair
	}{
		{
			name: "credentials substituted",
			els:  []*domtest.Element{user, pass},
			want: []formdata.Pair{{Name: "login", Value: "a@b.c"}, {Name: "pw", Value: "pa ss"}},
		},
		{
			name: "other fields take live values",
			els: []*domtest.Element{
				domtest.Input("csrf", "hidden").WithValue("tok"),
				user,
				pass,
				domtest.Input("other", "password").WithValue("x"),
				domtest.Checkbox("remember", "yes", true),
				domtest.Checkbox("spam", "1", false),
				{N: "lang", T: "select-multiple", Sel: []string{"en", "de"}},
				{N: "off", T: "text", V: "skip", Dis: true},
				{T: "text", V: "unnamed"},
				domtest.Input("cancel", "button"),
				domtest.Input("clear", "reset"),
			},
			want: []formdata.Pair{
				{Name: "csrf", Value: "tok"},
				{Name: "login", Value: "a@b.c"},
				{Name: "pw", Value: "pa ss"},
				{Name: "remember", Value: "yes"},
				{Name: "lang", Value: "en"},
				{Name: "lang", Value: "de"},
			},
		},
		{
			name: "first submit only",
			els: []*domtest.Element{
				user,
				pass,
				domtest.Input("signin", "submit").WithValue("Sign in"),
				domtest.Input("register", "submit").WithValue("Register"),
			},
			imgs: []*domtest.Element{domtest.Input("img", "image")},
			want: []formdata.Pair{
				{Name: "login", Value: "a@b.c"},
				{Name: "pw", Value: "pa ss"},
				{Name: "signin", Value: "Sign in"},
			},
		},
		{
			name: "image coordinates without submit",
			els:  []*domtest.Element{user, pass},
			imgs: []*domtest.Element{domtest.Input("go", "image").WithValue("v"), {T: "image"}},
			want: []formdata.Pair{
				{Name: "login", Value: "a@b.c"},
				{Name: "pw", Value: "pa ss"},
				{Name: "go.x", Value: "1"},
				{Name: "go.y", Value: "1"},
				{Name: "go", Value: "v"},
				{Name: "x", Value: "1"},
				{Name: "y", Value: "1"},
			},
		},
		{
			name: "radio",
			els: []*domtest.Element{
				user,
				pass,
				{N: "mode", T: "radio", V: "fast", Chk: false},
				{N: "mode", T: "radio", V: "safe", Chk: true},
			},
			want: []formdata.Pair{
				{Name: "login", Value: "a@b.c"},
				{Name: "pw", Value: "pa ss"},
				{Name: "mode", Value: "safe"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := domtest.NewForm(0, "", tt.els...)
			form.Imgs = tt.imgs

			got := BuildPayload(form, m, c, "UTF-8").Pairs()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildPayloadPasswordOnly(t *testing.T) {
	pass := domtest.Input("pin", "password")
	form := domtest.NewForm(0, "", pass)

	got := BuildPayload(form, fields.Match{Password: pass}, credential.Credential{Password: "1234"}, "UTF-8").String()
	if got != "pin=1234" {
		t.Errorf("payload = %q, want pin=1234", got)
	}
}

func TestBuildPayloadLegacyCharset(t *testing.T) {
	user := domtest.Input("user", "text")
	pass := domtest.Input("pass", "password")
	form := domtest.NewForm(0, "", user, pass)

	c := credential.Credential{Username: "jürgen", Password: "a b"}
	got := BuildPayload(form, fields.Match{Username: user, Password: pass}, c, "windows-1252").String()

	if got != "user=j%FCrgen&pass=a+b" {
		t.Errorf("payload = %q", got)
	}
}

func TestStandardPolicy(t *testing.T) {
	mustParse := func(s string) *url.URL {
		u, err := url.Parse(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		return u
	}

	page := mustParse("https://example.com/login")

	tests := []struct {
		name    string
		source  *url.URL
		target  *url.URL
		allowed bool
	}{
		{"same origin", page, mustParse("https://example.com/session"), true},
		{"cross origin https", page, mustParse("https://auth.example.net/"), true},
		{"http target", page, mustParse("http://example.com/"), true},
		{"javascript", page, mustParse("javascript:alert(1)"), false},
		{"data", page, mustParse("data:text/html,hi"), false},
		{"file", page, mustParse("file:///etc/passwd"), false},
		{"userinfo", page, mustParse("https://u:p@example.com/"), false},
		{"file source", mustParse("file:///tmp/x.html"), mustParse("https://example.com/"), false},
		{"nil target", page, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := StandardPolicy{}.CheckLoadURI(tt.source, tt.target)
			if (err == nil) != tt.allowed {
				t.Errorf("err = %v, allowed = %v", err, tt.allowed)
			}
		})
	}
}
