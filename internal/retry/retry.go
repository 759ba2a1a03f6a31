// Package retry implements the bounded retry loop shared by the host client,
// the link resolver and the unrestriction stage.
package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"wsaddon/internal/domain"
)

// Policy describes one bounded retry loop. Backoff receives the number of
// attempts already made and returns the wait before the next one.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(err error) bool
}

// Linear returns attempt × base, the backoff used by the resolver and the
// unrestriction stage.
func Linear(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// Once is a policy with a single attempt.
func Once() Policy {
	return Policy{MaxAttempts: 1}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying regardless of the policy predicate.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm)
}

func unwrapPermanent(err error) error {
	if perm, ok := err.(*permanentError); ok {
		return perm.err
	}
	return err
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// cap is reached. The last error is returned unwrapped from Permanent.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) error) error {
	_, err := DoValue(ctx, policy, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}

// DoValue is Do for functions that produce a value.
func DoValue[T any](ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		value, err := fn(ctx, attempt)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if IsPermanent(err) {
			return zero, unwrapPermanent(err)
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		var delay time.Duration
		if policy.Backoff != nil {
			delay = policy.Backoff(attempt)
		}
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// IsTransient reports network failures and malformed upstream responses,
// both of which are worth another attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrProtocol) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		code := statusErr.HTTPStatusCode()
		return code >= 500 || code == 429
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "tls") ||
		strings.Contains(lower, "eof")
}

// Always retries everything except caller cancellation.
func Always(err error) bool {
	return !errors.Is(err, context.Canceled)
}
