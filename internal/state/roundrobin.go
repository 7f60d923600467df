package state

import (
	"context"
	"sync"

	"github.com/97woo/tgbot/internal/errors"
	"github.com/97woo/tgbot/internal/store"
)

// RoundRobinTracker remembers the last drop winner per venue so the same
// user cannot win twice in a row while the venue is large enough. The
// read-then-write sequence is kept atomic per venue by the coordinator's
// per-venue lock; the tracker's own mutex protects the map itself.
type RoundRobinTracker struct {
	mu      sync.RWMutex
	store   store.Store
	winners map[string]string // venueID -> last winner userID
}

// NewRoundRobinTracker creates a tracker backed by st.
func NewRoundRobinTracker(ctx context.Context, st store.Store) (*RoundRobinTracker, error) {
	t := &RoundRobinTracker{
		store:   st,
		winners: make(map[string]string),
	}
	if _, err := st.Get(ctx, store.DocWinners, &t.winners); err != nil {
		return nil, err
	}
	if t.winners == nil {
		t.winners = make(map[string]string)
	}
	return t, nil
}

// LastWinner returns the previous winner for a venue, empty when none.
func (t *RoundRobinTracker) LastWinner(venueID string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.winners[venueID]
}

// SetWinner records a confirmed winner for a venue and persists the tracker.
func (t *RoundRobinTracker) SetWinner(ctx context.Context, venueID, userID string) error {
	t.mu.Lock()
	t.winners[venueID] = userID
	snapshot := make(map[string]string, len(t.winners))
	for k, v := range t.winners {
		snapshot[k] = v
	}
	t.mu.Unlock()

	if err := t.store.Put(ctx, store.DocWinners, snapshot); err != nil {
		return errors.NewPersistenceError(store.DocWinners, err)
	}
	return nil
}
