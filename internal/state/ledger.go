package state

import (
	"context"
	"math/big"
	"sync"

	"github.com/97woo/tgbot/internal/errors"
	"github.com/97woo/tgbot/internal/store"
)

// SpendLedger tracks the total amount dropped per period key. Within a
// period the recorded total only grows; rollover happens implicitly through
// a new key. Old period entries are kept for reporting.
//
// In-flight drops hold a reservation so the cap check and the claim are one
// atomic step. Reservations live only in memory: a crash mid-dispatch
// releases them, and only committed spend is persisted.
type SpendLedger struct {
	mu       sync.RWMutex
	store    store.Store
	spent    map[string]*big.Int // periodKey -> committed wei
	reserved map[string]*big.Int // periodKey -> in-flight wei
}

// ledger documents store amounts as decimal strings to stay precise beyond
// float range.
type ledgerDoc map[string]string

// NewSpendLedger creates a ledger backed by st, restoring persisted totals.
func NewSpendLedger(ctx context.Context, st store.Store) (*SpendLedger, error) {
	l := &SpendLedger{
		store:    st,
		spent:    make(map[string]*big.Int),
		reserved: make(map[string]*big.Int),
	}

	var doc ledgerDoc
	if _, err := st.Get(ctx, store.DocLedger, &doc); err != nil {
		return nil, err
	}
	for period, s := range doc {
		amount, ok := new(big.Int).SetString(s, 10)
		if !ok {
			continue // corrupt entry, skip rather than refuse to start
		}
		l.spent[period] = amount
	}
	return l, nil
}

// Spent returns the committed total for a period. Zero when the period has
// no entry yet.
func (l *SpendLedger) Spent(period string) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if amount, ok := l.spent[period]; ok {
		return new(big.Int).Set(amount)
	}
	return new(big.Int)
}

// Headroom returns cap minus the committed total for a period, floored at
// zero.
func (l *SpendLedger) Headroom(period string, cap *big.Int) *big.Int {
	headroom := new(big.Int).Sub(cap, l.Spent(period))
	if headroom.Sign() < 0 {
		return new(big.Int)
	}
	return headroom
}

// Reserve atomically claims up to amount of the period headroom against cap,
// counting both committed spend and other live reservations. It returns the
// granted amount, clamped to what remains, and false when nothing remains.
// A granted reservation must be settled with Commit or Release.
func (l *SpendLedger) Reserve(period string, amount, cap *big.Int) (*big.Int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	headroom := new(big.Int).Sub(cap, l.spentLocked(period))
	headroom.Sub(headroom, l.reservedLocked(period))
	if headroom.Sign() <= 0 {
		return nil, false
	}

	granted := new(big.Int).Set(amount)
	if granted.Cmp(headroom) > 0 {
		granted.Set(headroom)
	}

	res, ok := l.reserved[period]
	if !ok {
		res = new(big.Int)
		l.reserved[period] = res
	}
	res.Add(res, granted)
	return granted, true
}

// Release returns an unspent reservation to the period headroom.
func (l *SpendLedger) Release(period string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseLocked(period, amount)
}

// Commit converts a reservation into committed spend and persists the
// ledger. The in-memory total is updated even if persistence fails.
func (l *SpendLedger) Commit(ctx context.Context, period string, amount *big.Int) error {
	l.mu.Lock()
	l.releaseLocked(period, amount)
	doc := l.addLocked(period, amount)
	l.mu.Unlock()

	return l.persist(ctx, doc)
}

// Add records a committed drop amount against a period without a prior
// reservation and persists the ledger. Callers racing against each other
// should go through Reserve/Commit instead.
func (l *SpendLedger) Add(ctx context.Context, period string, amount *big.Int) error {
	l.mu.Lock()
	doc := l.addLocked(period, amount)
	l.mu.Unlock()

	return l.persist(ctx, doc)
}

func (l *SpendLedger) spentLocked(period string) *big.Int {
	if amount, ok := l.spent[period]; ok {
		return amount
	}
	return new(big.Int)
}

func (l *SpendLedger) reservedLocked(period string) *big.Int {
	if amount, ok := l.reserved[period]; ok {
		return amount
	}
	return new(big.Int)
}

func (l *SpendLedger) releaseLocked(period string, amount *big.Int) {
	res, ok := l.reserved[period]
	if !ok {
		return
	}
	res.Sub(res, amount)
	if res.Sign() <= 0 {
		delete(l.reserved, period)
	}
}

func (l *SpendLedger) addLocked(period string, amount *big.Int) ledgerDoc {
	total, ok := l.spent[period]
	if !ok {
		total = new(big.Int)
		l.spent[period] = total
	}
	total.Add(total, amount)

	doc := make(ledgerDoc, len(l.spent))
	for p, a := range l.spent {
		doc[p] = a.String()
	}
	return doc
}

func (l *SpendLedger) persist(ctx context.Context, doc ledgerDoc) error {
	if err := l.store.Put(ctx, store.DocLedger, doc); err != nil {
		return errors.NewPersistenceError(store.DocLedger, err)
	}
	return nil
}
