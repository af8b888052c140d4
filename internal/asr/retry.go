package asr

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"
)

// StatusError is a non-200 response from a provider.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, formatResponse(e.Body))
}

// RetryExhaustedError is returned after every attempt has failed.
type RetryExhaustedError struct {
	Attempts   int
	MaxRetry   int
	LastStatus int
	Body       []byte
	Err        error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("exceeded max retries (%d): %v", e.MaxRetry, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// retryable reports whether another attempt could succeed.
// Client errors other than timeouts and rate limits will not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 {
		return se.Code == http.StatusRequestTimeout || se.Code == http.StatusTooManyRequests
	}
	return true
}

type retryPolicy struct {
	maxRetry  int
	baseDelay time.Duration
	debug     bool
}

func newRetryPolicy(maxRetry int, baseDelaySec float64, debug bool) retryPolicy {
	if maxRetry < 1 {
		maxRetry = 1
	}
	return retryPolicy{
		maxRetry:  maxRetry,
		baseDelay: time.Duration(baseDelaySec * float64(time.Second)),
		debug:     debug,
	}
}

// do runs attempt until it succeeds, fails permanently, or maxRetry
// attempts are used. The delay doubles after each failure.
func (p retryPolicy) do(ctx context.Context, attempt func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	delay := p.baseDelay
	var lastErr error
	for try := 1; ; try++ {
		body, err := attempt(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if p.debug {
			fmt.Printf("[upload] attempt %d failed: %v\n", try, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable(err) {
			return nil, err
		}
		if try >= p.maxRetry {
			re := &RetryExhaustedError{Attempts: try, MaxRetry: p.maxRetry, Err: lastErr}
			var se *StatusError
			if errors.As(lastErr, &se) {
				re.LastStatus = se.Code
				re.Body = se.Body
			}
			return nil, re
		}

		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
		delay *= 2
	}
}

func formatResponse(b []byte) string {
	if len(b) == 0 {
		return "<empty>"
	}
	const maxText = 1000
	const maxBin = 256

	if utf8.Valid(b) {
		s := string(b)
		if len(s) > maxText {
			return fmt.Sprintf("%s... (truncated, total %d bytes)", s[:maxText], len(b))
		}
		return s
	}

	if len(b) > maxBin {
		return fmt.Sprintf("<binary %d bytes, prefix hex: %s...>", len(b), hex.EncodeToString(b[:maxBin]))
	}
	return fmt.Sprintf("<binary %d bytes, hex: %s>", len(b), hex.EncodeToString(b))
}
