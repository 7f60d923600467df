// Package types provides common type definitions shared across the drop bot.
package types

import "time"

// VenueKind classifies the conversation a message arrived in.
type VenueKind string

const (
	// VenuePrivate is a one-to-one chat. Drops are disabled here.
	VenuePrivate VenueKind = "private"
	// VenueGroup is a regular group chat.
	VenueGroup VenueKind = "group"
	// VenueSupergroup is a large group chat.
	VenueSupergroup VenueKind = "supergroup"
	// VenueChannel is a broadcast channel.
	VenueChannel VenueKind = "channel"
)

// IsPrivate reports whether the venue is a direct one-to-one conversation.
func (k VenueKind) IsPrivate() bool {
	return k == VenuePrivate
}

// Event is a single inbound chat message considered for a drop.
type Event struct {
	ID        string
	UserID    string
	UserName  string
	VenueID   string
	VenueKind VenueKind
	Text      string
	At        time.Time
}

// DropRecord is one committed drop, appended to the history and never mutated.
type DropRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
	VenueID   string `json:"venueId"`
	Address   string `json:"address"`
	AmountWei string `json:"amountWei"`
	TxHash    string `json:"txHash"`
	Timestamp int64  `json:"timestamp"`
}

// ServiceError represents a structured error surfaced by a component.
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return e.Code + ": " + e.Message
}
