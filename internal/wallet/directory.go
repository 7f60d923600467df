package wallet

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/97woo/tgbot/internal/errors"
	"github.com/97woo/tgbot/internal/store"
)

// Directory maps opaque user identifiers to canonical recipient addresses.
// At most one address per user; re-registration overwrites. The in-memory
// copy is authoritative for the process; writes to the backing store are
// best effort and retried implicitly on the next write.
type Directory struct {
	mu      sync.RWMutex
	store   store.Store
	wallets map[string]string // userID -> checksummed address
}

// NewDirectory creates a directory backed by st, loading any previously
// persisted registrations.
func NewDirectory(ctx context.Context, st store.Store) (*Directory, error) {
	d := &Directory{
		store:   st,
		wallets: make(map[string]string),
	}
	if _, err := st.Get(ctx, store.DocWallets, &d.wallets); err != nil {
		return nil, err
	}
	if d.wallets == nil {
		d.wallets = make(map[string]string)
	}
	return d, nil
}

// Set validates, canonicalizes, and registers an address for a user. An
// existing registration is overwritten.
func (d *Directory) Set(ctx context.Context, userID, address string) error {
	canonical, err := CanonicalAddress(address)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.wallets[userID] = canonical.Hex()
	snapshot := d.snapshotLocked()
	d.mu.Unlock()

	return d.persist(ctx, snapshot)
}

// Get returns the registered address for a user, or false when none exists.
func (d *Directory) Get(userID string) (common.Address, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	hex, ok := d.wallets[userID]
	if !ok {
		return common.Address{}, false
	}
	return common.HexToAddress(hex), true
}

// Remove deletes a user's registration. Returns false when none existed.
func (d *Directory) Remove(ctx context.Context, userID string) (bool, error) {
	d.mu.Lock()
	if _, ok := d.wallets[userID]; !ok {
		d.mu.Unlock()
		return false, nil
	}
	delete(d.wallets, userID)
	snapshot := d.snapshotLocked()
	d.mu.Unlock()

	return true, d.persist(ctx, snapshot)
}

// Count returns the number of registered wallets.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.wallets)
}

func (d *Directory) snapshotLocked() map[string]string {
	snapshot := make(map[string]string, len(d.wallets))
	for k, v := range d.wallets {
		snapshot[k] = v
	}
	return snapshot
}

func (d *Directory) persist(ctx context.Context, snapshot map[string]string) error {
	if err := d.store.Put(ctx, store.DocWallets, snapshot); err != nil {
		return errors.NewPersistenceError(store.DocWallets, err)
	}
	return nil
}
