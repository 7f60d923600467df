// Package engine implements the drop eligibility decision: a fixed-order
// chain of short-circuiting admission rules producing a deterministic
// allow/deny/amount verdict.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/97woo/tgbot/internal/logging"
	"github.com/97woo/tgbot/internal/state"
	"github.com/97woo/tgbot/internal/types"
)

// Reason identifies which rule decided the verdict.
type Reason string

const (
	ReasonAllowed           Reason = "allowed"
	ReasonBlacklisted       Reason = "blacklisted"
	ReasonWrongVenue        Reason = "wrong_venue"
	ReasonTooShort          Reason = "too_short"
	ReasonNotRegistered     Reason = "not_registered"
	ReasonCooldown          Reason = "cooldown"
	ReasonVenueTooSmall     Reason = "venue_too_small"
	ReasonConsecutiveWinner Reason = "consecutive_winner"
	ReasonPeriodExhausted   Reason = "period_exhausted"
	ReasonNotSelected       Reason = "not_selected"
	ReasonBelowDust         Reason = "below_dust"
)

// Verdict is the outcome of an eligibility evaluation.
type Verdict struct {
	Allow   bool
	Reason  Reason
	Address common.Address // set only when Allow
	Amount  *big.Int       // wei, set only when Allow
	Period  string         // spend period the verdict was computed against
}

func deny(reason Reason, period string) Verdict {
	return Verdict{Reason: reason, Period: period}
}

// Population is a venue member count. Known is false when the external query
// failed; the population rules then fail open and assume a count above the
// threshold.
type Population struct {
	Size  int
	Known bool
}

// AboveThreshold reports whether the venue is larger than min, assuming it
// is when the count could not be determined.
func (p Population) AboveThreshold(min int) bool {
	if !p.Known {
		return true
	}
	return p.Size > min
}

// RecipientLookup resolves a user to a registered recipient address.
type RecipientLookup interface {
	Get(userID string) (common.Address, bool)
}

// PopulationCounter queries the current member count of a venue.
type PopulationCounter interface {
	Count(ctx context.Context, venueID string) (int, error)
}

// Notifier delivers a fire-and-forget message to a venue.
type Notifier interface {
	Notify(ctx context.Context, venueID, text string) error
}

// Config holds the eligibility thresholds.
type Config struct {
	Probability   float64
	AmountWei     *big.Int
	DailyCapWei   *big.Int
	DustWei       *big.Int
	Cooldown      time.Duration
	MinMessageLen int
	MinPopulation int
	RolloverHour  int
}

// Engine evaluates drop eligibility. Evaluation is a pure function of the
// committed tracker state, with one exception: the first event to hit an
// exhausted period in a venue triggers a single notification for that
// (period, venue) pair.
type Engine struct {
	cfg        Config
	directory  RecipientLookup
	blacklist  *state.Blacklist
	cooldown   *state.CooldownClock
	roundRobin *state.RoundRobinTracker
	ledger     *state.SpendLedger
	population PopulationCounter
	notifier   Notifier

	randFloat func() float64
	now       func() time.Time

	// One exhaustion notice per (period, venue), deduped across restarts.
	notices *state.NoticeLog
}

// New creates an eligibility engine. notifier may be nil, in which case the
// exhaustion notice is skipped.
func New(
	cfg Config,
	directory RecipientLookup,
	blacklist *state.Blacklist,
	cooldown *state.CooldownClock,
	roundRobin *state.RoundRobinTracker,
	ledger *state.SpendLedger,
	notices *state.NoticeLog,
	population PopulationCounter,
	notifier Notifier,
) *Engine {
	return &Engine{
		cfg:        cfg,
		directory:  directory,
		blacklist:  blacklist,
		cooldown:   cooldown,
		roundRobin: roundRobin,
		ledger:     ledger,
		population: population,
		notifier:   notifier,
		randFloat:  rand.Float64,
		now:        time.Now,
		notices:    notices,
	}
}

// SetRandSource overrides the probabilistic draw. Used by tests.
func (e *Engine) SetRandSource(f func() float64) {
	e.randFloat = f
}

// SetClock overrides the wall clock. Used by tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// LookupPopulation fetches the venue population, failing open when the
// external query errors. This is a blocking network call; the coordinator
// performs it before acquiring any commit lock.
func (e *Engine) LookupPopulation(ctx context.Context, venueID string) Population {
	count, err := e.population.Count(ctx, venueID)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("venue", venueID).
			Warn("Population query failed, assuming above threshold")
		return Population{Known: false}
	}
	return Population{Size: count, Known: true}
}

// Evaluate fetches the venue population and evaluates the event. Prefer
// EvaluateWithPopulation when the count was already fetched.
func (e *Engine) Evaluate(ctx context.Context, ev types.Event) Verdict {
	return e.EvaluateWithPopulation(ctx, ev, e.LookupPopulation(ctx, ev.VenueID))
}

// EvaluateWithPopulation runs the admission rules in their fixed order. The
// first failing rule short-circuits and names the reason. No tracker state
// is mutated here; commits happen only after confirmed transaction success.
func (e *Engine) EvaluateWithPopulation(ctx context.Context, ev types.Event, pop Population) Verdict {
	now := e.now()
	period := state.PeriodKey(now, e.cfg.RolloverHour)

	// 1. Blacklist membership is checked before everything else.
	if e.blacklist.Contains(ev.UserID) {
		return deny(ReasonBlacklisted, period)
	}

	// 2. Drops never happen in one-to-one conversations.
	if ev.VenueKind.IsPrivate() {
		return deny(ReasonWrongVenue, period)
	}

	// 3. Trigger content must carry a minimum length.
	if len([]rune(ev.Text)) < e.cfg.MinMessageLen {
		return deny(ReasonTooShort, period)
	}

	// 4. Recipient must be registered.
	address, registered := e.directory.Get(ev.UserID)
	if !registered {
		return deny(ReasonNotRegistered, period)
	}

	// 5. Per-recipient cooldown.
	if e.cooldown.Remaining(ev.UserID, now, e.cfg.Cooldown) > 0 {
		return deny(ReasonCooldown, period)
	}

	// 6. Venue population gate, failing open on an unknown count.
	if !pop.AboveThreshold(e.cfg.MinPopulation) {
		return deny(ReasonVenueTooSmall, period)
	}

	// 7. Round-robin anti-repeat, active only above the population threshold.
	if e.roundRobin.LastWinner(ev.VenueID) == ev.UserID {
		return deny(ReasonConsecutiveWinner, period)
	}

	// 8. Period spend cap.
	spent := e.ledger.Spent(period)
	if spent.Cmp(e.cfg.DailyCapWei) >= 0 {
		e.notifyExhausted(ctx, period, ev.VenueID)
		return deny(ReasonPeriodExhausted, period)
	}

	// 9. Probabilistic draw.
	if e.randFloat() >= e.cfg.Probability {
		return deny(ReasonNotSelected, period)
	}

	// 10. Clamp the nominal amount to the remaining period headroom.
	amount := new(big.Int).Set(e.cfg.AmountWei)
	if headroom := new(big.Int).Sub(e.cfg.DailyCapWei, spent); amount.Cmp(headroom) > 0 {
		amount = headroom
	}
	if amount.Cmp(e.cfg.DustWei) < 0 {
		return deny(ReasonBelowDust, period)
	}

	return Verdict{
		Allow:   true,
		Reason:  ReasonAllowed,
		Address: address,
		Amount:  amount,
		Period:  period,
	}
}

// notifyExhausted emits the one-time budget-exhausted notice for a
// (period, venue) pair. Delivery failures are logged, never escalated.
func (e *Engine) notifyExhausted(ctx context.Context, period, venueID string) {
	if e.notifier == nil {
		return
	}

	first, err := e.notices.MarkIfNew(ctx, period, venueID)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Notice log persistence failed, in-memory state retained")
	}
	if !first {
		return
	}

	text := fmt.Sprintf("💸 Today's drop budget (%s RBTC) is exhausted. Drops resume after rollover.",
		types.FormatRBTC(e.cfg.DailyCapWei))
	if err := e.notifier.Notify(ctx, venueID, text); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("venue", venueID).
			Warn("Failed to deliver exhaustion notice")
	}
}
