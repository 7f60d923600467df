package telegram

import (
	"context"
	"strconv"

	"github.com/97woo/tgbot/internal/circuitbreaker"
)

// Notifier adapts the client to the coordinator's fire-and-forget
// notification sink. Venue IDs are chat IDs rendered as strings.
type Notifier struct {
	client *Client
}

// NewNotifier creates a notification sink over a client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// Notify sends text to a venue.
func (n *Notifier) Notify(ctx context.Context, venueID, text string) error {
	chatID, err := strconv.ParseInt(venueID, 10, 64)
	if err != nil {
		return err
	}
	return n.client.SendMessage(ctx, chatID, text)
}

// PopulationCounter adapts getChatMemberCount to the eligibility engine's
// venue population query. A circuit breaker guards the call: population
// checks fail open, so while the breaker is open the engine simply assumes
// the venue is large enough instead of hammering a failing API.
type PopulationCounter struct {
	client  *Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewPopulationCounter creates a population counter over a client.
func NewPopulationCounter(client *Client) *PopulationCounter {
	return &PopulationCounter{
		client:  client,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("chat-member-count")),
	}
}

// Count returns the current member count of a venue.
func (p *PopulationCounter) Count(ctx context.Context, venueID string) (int, error) {
	chatID, err := strconv.ParseInt(venueID, 10, 64)
	if err != nil {
		return 0, err
	}

	var count int
	err = p.breaker.Execute(ctx, func() error {
		var callErr error
		count, callErr = p.client.GetChatMemberCount(ctx, chatID)
		return callErr
	})
	return count, err
}
