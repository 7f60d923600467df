package state

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/97woo/tgbot/internal/errors"
	"github.com/97woo/tgbot/internal/store"
)

// NoticeLog records which (period, venue) pairs have already received the
// exhaustion notice. The set is persisted so a restart mid-period does not
// repeat a notice the venue already saw.
type NoticeLog struct {
	mu    sync.Mutex
	store store.Store
	seen  map[string]struct{}
}

// NewNoticeLog creates a notice log backed by st, restoring persisted
// entries.
func NewNoticeLog(ctx context.Context, st store.Store) (*NoticeLog, error) {
	n := &NoticeLog{
		store: st,
		seen:  make(map[string]struct{}),
	}

	var persisted []string
	if _, err := st.Get(ctx, store.DocNotices, &persisted); err != nil {
		return nil, err
	}
	for _, key := range persisted {
		n.seen[key] = struct{}{}
	}
	return n, nil
}

// MarkIfNew records the pair and reports whether it was unseen. Entries from
// other periods are dropped on the way out; they can never be queried again.
// A persistence failure still counts the pair as seen in memory.
func (n *NoticeLog) MarkIfNew(ctx context.Context, period, venueID string) (bool, error) {
	key := period + "|" + venueID

	n.mu.Lock()
	if _, seen := n.seen[key]; seen {
		n.mu.Unlock()
		return false, nil
	}
	for k := range n.seen {
		if !strings.HasPrefix(k, period+"|") {
			delete(n.seen, k)
		}
	}
	n.seen[key] = struct{}{}

	snapshot := make([]string, 0, len(n.seen))
	for k := range n.seen {
		snapshot = append(snapshot, k)
	}
	sort.Strings(snapshot)
	n.mu.Unlock()

	if err := n.store.Put(ctx, store.DocNotices, snapshot); err != nil {
		return true, errors.NewPersistenceError(store.DocNotices, err)
	}
	return true, nil
}
