package state

import (
	"context"
	"sync"
	"time"

	"github.com/97woo/tgbot/internal/errors"
	"github.com/97woo/tgbot/internal/store"
)

// CooldownClock records the last confirmed drop time per user. Updated only
// on transaction success, never on denial.
type CooldownClock struct {
	mu    sync.RWMutex
	store store.Store
	last  map[string]time.Time // userID -> last drop time
}

type cooldownDoc map[string]int64 // userID -> unix seconds

// NewCooldownClock creates a cooldown clock backed by st.
func NewCooldownClock(ctx context.Context, st store.Store) (*CooldownClock, error) {
	c := &CooldownClock{
		store: st,
		last:  make(map[string]time.Time),
	}

	var doc cooldownDoc
	if _, err := st.Get(ctx, store.DocCooldown, &doc); err != nil {
		return nil, err
	}
	for user, ts := range doc {
		c.last[user] = time.Unix(ts, 0)
	}
	return c, nil
}

// Remaining returns how much of the cooldown is left for a user at time now.
// Zero or negative means the user is out of cooldown.
func (c *CooldownClock) Remaining(userID string, now time.Time, cooldown time.Duration) time.Duration {
	c.mu.RLock()
	last, ok := c.last[userID]
	c.mu.RUnlock()

	if !ok {
		return 0
	}
	return cooldown - now.Sub(last)
}

// Touch records a confirmed drop for a user and persists the clock.
func (c *CooldownClock) Touch(ctx context.Context, userID string, at time.Time) error {
	c.mu.Lock()
	c.last[userID] = at

	doc := make(cooldownDoc, len(c.last))
	for user, t := range c.last {
		doc[user] = t.Unix()
	}
	c.mu.Unlock()

	if err := c.store.Put(ctx, store.DocCooldown, doc); err != nil {
		return errors.NewPersistenceError(store.DocCooldown, err)
	}
	return nil
}
