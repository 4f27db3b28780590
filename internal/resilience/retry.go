// Package resilience provides the fault-tolerance wrappers the checking
// engines call their external services through: bounded-backoff retry for
// transient failures, a per-engine circuit breaker, and hard timeouts.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// ErrTransient marks an error as retryable. Service clients wrap errors
// with it when the failure class cannot be detected from the error type.
var ErrTransient = errors.New("transient failure")

// IsTransient reports whether an error belongs to a retryable failure
// class: timeouts, refused or reset connections, or errors explicitly
// marked with ErrTransient. Malformed-input errors are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// BackoffMultiplier multiplies the delay after each attempt.
	BackoffMultiplier float64

	// Retryable decides whether an error warrants another attempt.
	// If nil, IsTransient is used.
	Retryable func(error) bool
}

// DefaultRetryConfig returns the standard engine-call retry policy:
// three attempts with 1s, 2s, 4s between them, transient failures only.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      time.Second,
		MaxDelay:          8 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Retry executes fn with bounded exponential backoff. There is no delay
// before the first attempt. Non-retryable errors are returned
// immediately; the context cancels waits between attempts.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			var zero T
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	var zero T
	return zero, fmt.Errorf("all %d attempts failed: %w", maxAttempts, lastErr)
}

// Timeout executes fn with a hard deadline, independent of any retry
// delays. fn must respect the passed context; when it does not, the
// caller still returns on deadline but the goroutine runs to completion
// in the background.
func Timeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan T, 1)
	errCh := make(chan error, 1)

	go func() {
		result, err := fn(ctx)
		if err != nil {
			errCh <- err
		} else {
			resultCh <- result
		}
	}()

	select {
	case result := <-resultCh:
		return result, nil
	case err := <-errCh:
		var zero T
		return zero, err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// SafeGo runs fn in a goroutine with panic recovery.
func SafeGo(fn func(), onPanic func(recovered any)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}
