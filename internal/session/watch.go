package session

import (
	"context"

	"github.com/zarlcorp/zlogin/internal/dom"
	"github.com/zarlcorp/zlogin/internal/prefs"
)

// prefUpdates maps preference names to the work needed when they change.
// Preferences not listed are read at the time of use.
func (s *Session) prefUpdates() map[string]func(prefs.Prefs) {
	return map[string]func(prefs.Prefs){
		prefs.SearchLoginsOnload:     s.searchOnloadChanged,
		prefs.HighlightColor:         s.rehighlight,
		prefs.HighlightOutlineWidth:  s.rehighlight,
		prefs.HighlightOutlineStyle:  s.rehighlight,
		prefs.HighlightOutlineRadius: s.rehighlight,
		prefs.HighlightStyle:         s.rehighlight,
		prefs.SecureLoginBookmarks:   s.bookmarksChanged,
	}
}

func (s *Session) searchOnloadChanged(p prefs.Prefs) {
	if !p.SearchLoginsOnload {
		s.ui.Status(true)
		return
	}

	s.mu.Lock()
	top := s.top
	s.mu.Unlock()

	if !dom.Live(top) {
		return
	}
	if err := s.Search(context.Background(), top); err != nil {
		s.log.Warn("search after enabling on-load search", "err", err)
	}
}

func (s *Session) rehighlight(p prefs.Prefs) {
	s.mu.Lock()
	entries := s.reg.All()
	s.mu.Unlock()

	highlight(p).ApplyAll(entries)
}

func (s *Session) bookmarksChanged(p prefs.Prefs) {
	if !p.SecureLoginBookmarks {
		return
	}
	if _, err := s.prefs.EnsureBookmarkHash(); err != nil {
		s.log.Warn("bookmark hash", "err", err)
	}
}
