package state

import (
	"context"
	"sort"
	"sync"

	"github.com/97woo/tgbot/internal/errors"
	"github.com/97woo/tgbot/internal/store"
)

// Blacklist is the set of user IDs that never receive drops. Seeded from
// configuration, merged with whatever the store carries, and mutable at
// runtime through the admin commands.
type Blacklist struct {
	mu      sync.RWMutex
	store   store.Store
	members map[string]struct{}
}

// NewBlacklist creates a blacklist backed by st, merging seed IDs from
// configuration with persisted members.
func NewBlacklist(ctx context.Context, st store.Store, seed []string) (*Blacklist, error) {
	b := &Blacklist{
		store:   st,
		members: make(map[string]struct{}),
	}

	var persisted []string
	if _, err := st.Get(ctx, store.DocBlacklist, &persisted); err != nil {
		return nil, err
	}
	for _, id := range persisted {
		b.members[id] = struct{}{}
	}
	for _, id := range seed {
		b.members[id] = struct{}{}
	}
	return b, nil
}

// Contains reports whether a user is blacklisted.
func (b *Blacklist) Contains(userID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.members[userID]
	return ok
}

// Add blacklists a user and persists the set.
func (b *Blacklist) Add(ctx context.Context, userID string) error {
	b.mu.Lock()
	b.members[userID] = struct{}{}
	snapshot := b.snapshotLocked()
	b.mu.Unlock()

	return b.persist(ctx, snapshot)
}

// Remove un-blacklists a user and persists the set.
func (b *Blacklist) Remove(ctx context.Context, userID string) error {
	b.mu.Lock()
	delete(b.members, userID)
	snapshot := b.snapshotLocked()
	b.mu.Unlock()

	return b.persist(ctx, snapshot)
}

func (b *Blacklist) snapshotLocked() []string {
	snapshot := make([]string, 0, len(b.members))
	for id := range b.members {
		snapshot = append(snapshot, id)
	}
	sort.Strings(snapshot)
	return snapshot
}

func (b *Blacklist) persist(ctx context.Context, snapshot []string) error {
	if err := b.store.Put(ctx, store.DocBlacklist, snapshot); err != nil {
		return errors.NewPersistenceError(store.DocBlacklist, err)
	}
	return nil
}
