// Package drop orchestrates the full lifecycle of one potential drop:
// eligibility evaluation, transaction dispatch with an outer retry loop, and
// the atomic commit of all stateful trackers on confirmed submission.
package drop

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/97woo/tgbot/internal/chain"
	"github.com/97woo/tgbot/internal/engine"
	"github.com/97woo/tgbot/internal/logging"
	"github.com/97woo/tgbot/internal/retry"
	"github.com/97woo/tgbot/internal/state"
	"github.com/97woo/tgbot/internal/types"
)

// TxSender submits a value transfer. Satisfied by *chain.Dispatcher.
type TxSender interface {
	Send(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
}

// HistorySink receives committed drop records for external reporting.
// Optional; failures are logged, never escalated.
type HistorySink interface {
	Record(ctx context.Context, rec types.DropRecord) error
}

// Config holds coordinator parameters.
type Config struct {
	OuterAttempts int           // full send re-invocations, fresh gas plan each
	OuterDelay    time.Duration // pause between send invocations
	ExplorerURL   string        // base URL for transaction links
	DailyCapWei   *big.Int      // period spend cap the reservation is checked against
	DustWei       *big.Int      // amounts below this are never dispatched
}

// Outcome is the result of handling one inbound event.
type Outcome struct {
	Verdict    engine.Verdict
	TxHash     common.Hash
	Dispatched bool  // true when a transaction was accepted
	Err        error // dispatch exhaustion, nil otherwise
}

// Coordinator sequences evaluate → reserve → send → commit. Evaluation runs
// under both the per-user and the per-venue lock; the venue lock is dropped
// once the ledger reservation is taken, so a retrying dispatch never blocks
// other users in the venue. The user lock spans the whole dispatch, keeping
// a user to one in-flight drop. The cap itself is enforced by the atomic
// reservation, which also covers events racing in from different venues.
// The venue population query runs before any lock is taken; it is the only
// blocking call evaluation needs.
type Coordinator struct {
	engine     *engine.Engine
	sender     TxSender
	ledger     *state.SpendLedger
	cooldown   *state.CooldownClock
	roundRobin *state.RoundRobinTracker
	history    *state.DropHistory
	sink       HistorySink // may be nil
	notifier   engine.Notifier
	cfg        Config

	locks *KeyedMutex
	now   func() time.Time
}

// NewCoordinator creates a drop coordinator. sink may be nil; notifier may
// be nil to suppress success messages.
func NewCoordinator(
	eng *engine.Engine,
	sender TxSender,
	ledger *state.SpendLedger,
	cooldown *state.CooldownClock,
	roundRobin *state.RoundRobinTracker,
	history *state.DropHistory,
	sink HistorySink,
	notifier engine.Notifier,
	cfg Config,
) *Coordinator {
	return &Coordinator{
		engine:     eng,
		sender:     sender,
		ledger:     ledger,
		cooldown:   cooldown,
		roundRobin: roundRobin,
		history:    history,
		sink:       sink,
		notifier:   notifier,
		cfg:        cfg,
		locks:      NewKeyedMutex(),
		now:        time.Now,
	}
}

// SetClock overrides the wall clock. Used by tests.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// Handle processes one inbound event end to end.
func (c *Coordinator) Handle(ctx context.Context, ev types.Event) Outcome {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"event": ev.ID,
		"user":  ev.UserID,
		"venue": ev.VenueID,
	})
	ctx = logging.WithLogger(ctx, logger)

	// The population count is a network round trip; fetch it before
	// touching any lock. Private venues are denied before the population
	// rule, so skip the call for them.
	pop := engine.Population{}
	if !ev.VenueKind.IsPrivate() {
		pop = c.engine.LookupPopulation(ctx, ev.VenueID)
	}

	// Lock venue before user, always in that order, so two events cannot
	// deadlock against each other.
	venueKey := "venue:" + ev.VenueID
	userKey := "user:" + ev.UserID
	c.locks.Lock(venueKey)
	c.locks.Lock(userKey)
	defer c.locks.Unlock(userKey)

	verdict := c.engine.EvaluateWithPopulation(ctx, ev, pop)
	if !verdict.Allow {
		c.locks.Unlock(venueKey)
		logger.WithField("reason", string(verdict.Reason)).Debug("Drop denied")
		return Outcome{Verdict: verdict}
	}

	// Claim the amount against the cap before anything leaves the locks.
	// Evaluation read committed spend only; a concurrent event in another
	// venue may have reserved the same headroom meanwhile, and this step is
	// what keeps the period total under the cap.
	amount, ok := c.ledger.Reserve(verdict.Period, verdict.Amount, c.cfg.DailyCapWei)
	c.locks.Unlock(venueKey)
	if !ok {
		verdict.Allow = false
		verdict.Reason = engine.ReasonPeriodExhausted
		logger.Debug("Headroom gone before reservation, drop denied")
		return Outcome{Verdict: verdict}
	}
	if c.cfg.DustWei != nil && amount.Cmp(c.cfg.DustWei) < 0 {
		c.ledger.Release(verdict.Period, amount)
		verdict.Allow = false
		verdict.Reason = engine.ReasonBelowDust
		return Outcome{Verdict: verdict}
	}
	verdict.Amount = amount

	logger.WithFields(map[string]interface{}{
		"address": verdict.Address.Hex(),
		"amount":  types.FormatRBTC(verdict.Amount),
	}).Info("Drop allowed, dispatching")

	hash, err := c.dispatch(ctx, verdict.Address, verdict.Amount)
	if err != nil {
		// Silent to the user on failure, but logged at error severity for
		// reconciliation. The reservation is returned and no tracker is
		// touched: the user was not charged for a drop that never went out.
		c.ledger.Release(verdict.Period, verdict.Amount)
		logger.WithError(err).Error("Dispatch exhausted, no state committed")
		return Outcome{Verdict: verdict, Err: err}
	}

	c.commit(ctx, ev, verdict, hash)
	c.notifySuccess(ctx, ev, verdict, hash)

	return Outcome{Verdict: verdict, TxHash: hash, Dispatched: true}
}

// dispatch runs the outer retry loop: each attempt is a full send
// re-invocation with a fresh gas plan and nonce, for the failure classes
// that need a re-estimate rather than only a price bump.
func (c *Coordinator) dispatch(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	var hash common.Hash

	result := retry.Run(ctx, &retry.Config{
		MaxAttempts: c.cfg.OuterAttempts,
		Delay:       c.cfg.OuterDelay,
		Retryable: func(err error) bool {
			var de *chain.DispatchError
			if errors.As(err, &de) {
				return de.Retryable()
			}
			return true
		},
	}, func(ctx context.Context, attempt int) error {
		h, err := c.sender.Send(ctx, to, amount)
		if err != nil {
			return err
		}
		hash = h
		return nil
	})

	if !result.Success {
		return common.Hash{}, result.Err()
	}
	return hash, nil
}

// commit settles the ledger reservation and applies the cooldown timestamp,
// round-robin winner, and history append as one logical unit under the held
// user lock. Each tracker persists itself; a failed store write keeps the
// in-memory update and is logged for later reconciliation.
func (c *Coordinator) commit(ctx context.Context, ev types.Event, verdict engine.Verdict, hash common.Hash) {
	logger := logging.FromContext(ctx)
	now := c.now()

	if err := c.ledger.Commit(ctx, verdict.Period, verdict.Amount); err != nil {
		logger.WithError(err).Error("Ledger persistence failed, in-memory state retained")
	}
	if err := c.cooldown.Touch(ctx, ev.UserID, now); err != nil {
		logger.WithError(err).Error("Cooldown persistence failed, in-memory state retained")
	}
	if err := c.roundRobin.SetWinner(ctx, ev.VenueID, ev.UserID); err != nil {
		logger.WithError(err).Error("Round-robin persistence failed, in-memory state retained")
	}

	rec := types.DropRecord{
		ID:        ev.ID,
		UserID:    ev.UserID,
		UserName:  ev.UserName,
		VenueID:   ev.VenueID,
		Address:   verdict.Address.Hex(),
		AmountWei: verdict.Amount.String(),
		TxHash:    hash.Hex(),
		Timestamp: now.Unix(),
	}
	if err := c.history.Append(ctx, rec); err != nil {
		logger.WithError(err).Error("History persistence failed, in-memory state retained")
	}
	if c.sink != nil {
		if err := c.sink.Record(ctx, rec); err != nil {
			logger.WithError(err).Warn("History sink write failed")
		}
	}

	logger.WithFields(map[string]interface{}{
		"txHash": hash.Hex(),
		"period": verdict.Period,
	}).Info("Drop committed")
}

func (c *Coordinator) notifySuccess(ctx context.Context, ev types.Event, verdict engine.Verdict, hash common.Hash) {
	if c.notifier == nil {
		return
	}

	text := fmt.Sprintf("💸 RBTC drop! 🎉\n\n👤 %s\n💰 %s RBTC\n🔗 %s/tx/%s",
		ev.UserName, types.FormatRBTC(verdict.Amount), c.cfg.ExplorerURL, hash.Hex())
	if err := c.notifier.Notify(ctx, ev.VenueID, text); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to deliver drop notification")
	}
}
