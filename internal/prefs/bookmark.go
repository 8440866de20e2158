package prefs

import (
	"encoding/binary"
	"fmt"

	"github.com/zarlcorp/core/pkg/zcrypto"
)

// DefaultBookmarkHash is the shipped bookmark anchor. It is replaced with a
// random one the first time bookmarks are used.
const DefaultBookmarkHash = "#secureLoginBookmark"

// EnsureBookmarkHash returns the bookmark anchor, first replacing the
// shipped default with a random "#slb<n>" anchor.
func (m *Manager) EnsureBookmarkHash() (string, error) {
	cur := m.Current().BookmarkHash
	if cur != "" && cur != DefaultBookmarkHash {
		return cur, nil
	}

	b, err := zcrypto.RandBytes(4)
	if err != nil {
		return "", fmt.Errorf("bookmark hash: %w", err)
	}
	hash := fmt.Sprintf("#slb%d", binary.BigEndian.Uint32(b)%1_000_000_000+1)

	if err := m.Set(BookmarkHash, hash); err != nil {
		return "", fmt.Errorf("bookmark hash: %w", err)
	}
	return hash, nil
}
