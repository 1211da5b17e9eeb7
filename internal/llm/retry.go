package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     defaultMaxRetries,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Retry returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent or is an API
// error that a retry cannot fix.
func IsPermanent(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return !shouldRetry(apiErr.Code)
	}
	return false
}

// shouldRetry determines if a status code is retryable
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Backoff returns the wait before retry number attempt (0-based):
// InitialBackoff * 2^attempt, capped at MaxBackoff.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	initial := c.InitialBackoff
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	limit := c.MaxBackoff
	if limit <= 0 {
		limit = defaultMaxBackoff
	}

	backoff := float64(initial) * math.Pow(2, float64(attempt))
	if backoff > float64(limit) {
		backoff = float64(limit)
	}
	return time.Duration(backoff)
}

// Retry calls op up to 1+MaxRetries times, waiting Backoff between attempts.
// It stops early on success, on a permanent error, or when ctx is done.
func Retry(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, name string, op func(context.Context) error) error {
	retries := max(cfg.MaxRetries, 0)
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%s: %w (last error: %v)", name, err, lastErr)
			}
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}
		if attempt == retries {
			break
		}

		backoff := cfg.Backoff(attempt)
		logger.Warn().
			Str("op", name).
			Int("attempt", attempt+1).
			Int("max_attempts", retries+1).
			Dur("backoff", backoff).
			Err(lastErr).
			Msg("call failed, retrying")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w (last error: %v)", name, ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	if retries == 0 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, retries+1, lastErr)
}
