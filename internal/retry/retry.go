// Package retry provides a bounded retry loop with a visible attempt counter
// and an accumulated error list. The budget is a single parameter; there is
// no recursion and no unbounded backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/97woo/tgbot/internal/logging"
)

// Config configures retry behavior
type Config struct {
	MaxAttempts int           // Maximum number of attempts, including the first
	Delay       time.Duration // Fixed delay between attempts
	Retryable   func(error) bool
}

// DefaultConfig returns a default retry configuration: 3 attempts with a 2s
// pause between them, retrying every error.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
	}
}

// Result contains information about the retry operation
type Result struct {
	Attempts      int           `json:"attempts"`
	Success       bool          `json:"success"`
	TotalDuration time.Duration `json:"totalDuration"`
	Errs          []error       `json:"-"`
}

// LastError returns the error from the final attempt, nil on success.
func (r *Result) LastError() error {
	if r.Success || len(r.Errs) == 0 {
		return nil
	}
	return r.Errs[len(r.Errs)-1]
}

// Err aggregates the accumulated errors into a single error, nil on success.
func (r *Result) Err() error {
	if r.Success {
		return nil
	}
	return fmt.Errorf("operation failed after %d attempts: %w", r.Attempts, r.LastError())
}

// Func is a function that can be retried. attempt is 0-indexed.
type Func func(ctx context.Context, attempt int) error

// Run executes fn up to cfg.MaxAttempts times with a fixed delay between
// attempts. A non-retryable error (per cfg.Retryable) stops the loop early
// but is still recorded in the result.
func Run(ctx context.Context, cfg *Config, fn Func) *Result {
	logger := logging.FromContext(ctx)
	startTime := time.Now()

	result := &Result{}

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result.Attempts = attempt + 1

		err := fn(ctx, attempt)
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(startTime)
			if attempt > 0 {
				logger.WithFields(map[string]interface{}{
					"attempts":      result.Attempts,
					"totalDuration": result.TotalDuration.String(),
				}).Info("Operation succeeded after retry")
			}
			return result
		}

		result.Errs = append(result.Errs, err)

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			logger.WithError(err).WithField("attempt", result.Attempts).
				Warn("Operation failed with non-retryable error")
			break
		}
		if result.Attempts >= cfg.MaxAttempts {
			logger.WithFields(map[string]interface{}{
				"attempts": result.Attempts,
				"error":    err.Error(),
			}).Error("Operation failed after max retry attempts")
			break
		}
		if ctx.Err() != nil {
			result.Errs = append(result.Errs, ctx.Err())
			break
		}

		logger.WithFields(map[string]interface{}{
			"attempt":     result.Attempts,
			"maxAttempts": cfg.MaxAttempts,
			"delay":       cfg.Delay.String(),
			"error":       err.Error(),
		}).Warn("Operation failed, retrying")

		select {
		case <-time.After(cfg.Delay):
		case <-ctx.Done():
			result.Errs = append(result.Errs, ctx.Err())
			result.TotalDuration = time.Since(startTime)
			return result
		}
	}

	result.TotalDuration = time.Since(startTime)
	return result
}
