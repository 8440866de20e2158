package prefs

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zarlcorp/core/pkg/zfilesystem"
)

func TestExceptions(t *testing.T) {
	m, err := Load(zfilesystem.NewMemFS())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	for _, u := range []string{"https://Bank.example.com/login?x=1", "https://a.test", "https://bank.example.com"} {
		if err := m.AddException(ExceptionList, u); err != nil {
			t.Fatalf("add %s: %v", u, err)
		}
	}

	got, err := m.Exceptions(ExceptionList)
	if err != nil {
		t.Fatalf("exceptions: %v", err)
	}
	want := []string{"https://a.test", "https://bank.example.com"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}

	if !m.IsException(ExceptionList, "https://bank.example.com/other") {
		t.Error("IsException should match by origin")
	}
	if m.IsException(AutoLoginExceptions, "https://bank.example.com") {
		t.Error("lists are independent")
	}

	if err := m.RemoveException(ExceptionList, "https://a.test/"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, _ = m.Exceptions(ExceptionList)
	if diff := cmp.Diff([]string{"https://bank.example.com"}, got); diff != "" {
		t.Errorf("after remove (-want +got):\n%s", diff)
	}
}

func TestExceptionsNotifyWatchers(t *testing.T) {
	m, err := Load(zfilesystem.NewMemFS())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var seen []string
	if err := m.Watch(AutoLoginExceptions, func(p Prefs) { seen = p.AutoLoginExceptions }); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := m.AddException(AutoLoginExceptions, "https://x.test"); err != nil {
		t.Fatalf("add: %v", err)
	}

	if diff := cmp.Diff([]string{"https://x.test"}, seen); diff != "" {
		t.Errorf("watcher saw (-want +got):\n%s", diff)
	}
}

func TestExceptionsUnknownList(t *testing.T) {
	m, err := Load(zfilesystem.NewMemFS())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := m.AddException(HighlightColor, "https://x.test"); !errors.Is(err, ErrUnknown) {
		t.Errorf("err = %v, want ErrUnknown", err)
	}
	if err := m.AddException(ExceptionList, "   "); err == nil {
		t.Error("expected error for empty origin")
	}
}

func TestCanonicalOrigin(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.COM:8443/a/b?c", "https://example.com:8443"},
		{"http://x.test", "http://x.test"},
		{" HTTPS://x.test/ ", "https://x.test"},
		{"not a url", "not a url"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CanonicalOrigin(tt.in); got != tt.want {
			t.Errorf("CanonicalOrigin(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
