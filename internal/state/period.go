// Package state holds the bot's mutable trackers as explicitly owned
// objects: the spend ledger, cooldown clock, round-robin tracker, blacklist,
// and drop history. Each guards its own data and snapshots to a store
// document on mutation. Persistence is best effort: a failed write leaves
// the in-memory update in place so the next write can retry it.
package state

import "time"

// PeriodKey derives the spend-period key for t. The period is a day whose
// boundary sits at rolloverHour local time rather than midnight: an event at
// 08:59 with a 09:00 rollover still belongs to the previous day's period.
func PeriodKey(t time.Time, rolloverHour int) string {
	return t.Add(-time.Duration(rolloverHour) * time.Hour).Format("2006-01-02")
}
