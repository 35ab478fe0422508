package steam

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// ErrUnavailable marks a resource that could not be fetched: either the failure was
// not retryable or the retry budget ran out.
var ErrUnavailable = errors.New("steam resource unavailable")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// IsRetryable reports whether err is a transient network condition worth retrying:
// DNS failures, unreachable hosts, refused connections, timeouts and HTTP 429/503/504.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// withRetry drives the Attempting -> (Success | RetryWait -> Attempting | Failed)
// cycle for a single fetch. Cancellation returns the context error untouched;
// every other terminal failure is reported as ErrUnavailable.
func (c *Client) withRetry(ctx context.Context, what string, attempt func(ctx context.Context, n int) error) error {
	for retry := 0; ; retry++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := attempt(ctx, retry+1)
		if err == nil {
			c.backoff.Reset()
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if !IsRetryable(err) {
			c.errorf("%s failed: %v", what, err)
			return fmt.Errorf("%w: %s: %v", ErrUnavailable, what, err)
		}

		if retry >= c.maxRetries {
			c.errorf("%s failed after %d retries (%v)", what, c.maxRetries, err)
			return fmt.Errorf("%w: %s: retries exhausted: %v", ErrUnavailable, what, err)
		}

		delay := c.backoff.Next(retry)
		c.warnf("Network error: %v. Retrying in %s...", err, delay)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// absentOnUnavailable folds ErrUnavailable into a nil error so callers see an
// absent or zero value; context errors pass through.
func absentOnUnavailable(err error) error {
	if errors.Is(err, ErrUnavailable) {
		return nil
	}
	return err
}
