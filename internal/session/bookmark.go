package session

import (
	"net/url"
	"strconv"
	"strings"
)

// Bookmark is the result of inspecting a URL fragment for a login
// bookmark anchor.
type Bookmark struct {
	// Match is true when the fragment starts with the full anchor.
	Match bool
	// Failed is true when the fragment looks like an anchor (same first
	// four characters) but is not the configured one.
	Failed   bool
	Index    int
	HasIndex bool
}

// ParseBookmark inspects fragment, with or without its leading '#',
// against hash.
func ParseBookmark(fragment, hash string) Bookmark {
	if fragment == "" || hash == "" {
		return Bookmark{}
	}
	if !strings.HasPrefix(fragment, "#") {
		fragment = "#" + fragment
	}

	if prefix(fragment, 4) != prefix(hash, 4) {
		return Bookmark{}
	}
	if !strings.HasPrefix(fragment, hash) {
		return Bookmark{Failed: true}
	}

	idx, ok := leadingInt(fragment[len(hash):])
	if !ok || idx < 0 {
		return Bookmark{Match: true}
	}
	return Bookmark{Match: true, Index: idx, HasIndex: true}
}

// BookmarkURL returns rawURL with its fragment replaced by the login anchor
// and optional index. A negative index is omitted.
func BookmarkURL(rawURL, hash string, index int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	frag := strings.TrimPrefix(hash, "#")
	if index >= 0 {
		frag += strconv.Itoa(index)
	}
	u.Fragment = frag
	u.RawFragment = ""
	return u.String(), nil
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// leadingInt parses an optional sign followed by digits at the start of s.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
