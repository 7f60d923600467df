package state

import (
	"context"
	"sync"

	"github.com/97woo/tgbot/internal/errors"
	"github.com/97woo/tgbot/internal/store"
	"github.com/97woo/tgbot/internal/types"
)

// DropHistory is the append-only sequence of committed drops. Records are
// never mutated or compacted here; they exist for reporting.
type DropHistory struct {
	mu      sync.RWMutex
	store   store.Store
	records []types.DropRecord
}

// NewDropHistory creates a history backed by st.
func NewDropHistory(ctx context.Context, st store.Store) (*DropHistory, error) {
	h := &DropHistory{store: st}
	if _, err := st.Get(ctx, store.DocHistory, &h.records); err != nil {
		return nil, err
	}
	return h, nil
}

// Append adds a committed drop record and persists the history.
func (h *DropHistory) Append(ctx context.Context, rec types.DropRecord) error {
	h.mu.Lock()
	h.records = append(h.records, rec)
	snapshot := make([]types.DropRecord, len(h.records))
	copy(snapshot, h.records)
	h.mu.Unlock()

	if err := h.store.Put(ctx, store.DocHistory, snapshot); err != nil {
		return errors.NewPersistenceError(store.DocHistory, err)
	}
	return nil
}

// Len returns the number of committed drops.
func (h *DropHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// ForVenue returns the committed records for a venue in commit order.
func (h *DropHistory) ForVenue(venueID string) []types.DropRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []types.DropRecord
	for _, rec := range h.records {
		if rec.VenueID == venueID {
			out = append(out, rec)
		}
	}
	return out
}

// Recent returns up to n of the most recent records, newest last.
func (h *DropHistory) Recent(n int) []types.DropRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > len(h.records) {
		n = len(h.records)
	}
	out := make([]types.DropRecord, n)
	copy(out, h.records[len(h.records)-n:])
	return out
}
