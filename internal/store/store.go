// Package store provides typed persistence of named JSON documents with
// swappable backends: a local durable file and a remote Redis document store.
// Both backends follow the same discipline: writing one document never
// touches the others.
package store

import "context"

// Document names used by the bot. Every piece of durable state lives under
// one of these.
const (
	DocWallets   = "wallets"
	DocLedger    = "ledger"
	DocCooldown  = "cooldown"
	DocWinners   = "winners"
	DocBlacklist = "blacklist"
	DocHistory   = "history"
	DocNotices   = "notices"
)

// Store is a typed key-value document store. Get unmarshals the named
// document into v and reports whether it existed. Put replaces only the
// named document, leaving sibling documents intact.
type Store interface {
	Get(ctx context.Context, name string, v interface{}) (bool, error)
	Put(ctx context.Context, name string, v interface{}) error
	Delete(ctx context.Context, name string) error
	Close() error
}
