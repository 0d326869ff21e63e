// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package embedding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// statusCodePattern finds HTTP status codes in provider error text, either
// after "status" / "status code" or at the start of a ": "-separated segment.
var statusCodePattern = regexp.MustCompile(`(?:^|: |status(?: code)?:? ?)([1-5]\d\d)\b`)

// statusCodes returns the HTTP status codes mentioned in msg.
func statusCodes(msg string) []int {
	var codes []int
	for _, m := range statusCodePattern.FindAllStringSubmatch(msg, -1) {
		if code, err := strconv.Atoi(m[1]); err == nil {
			codes = append(codes, code)
		}
	}
	return codes
}

// Backoff describes a bounded exponential retry policy.
type Backoff struct {
	// MaxAttempts is the total number of attempts (must be > 0).
	MaxAttempts int
	// BaseDelay is the delay before the second attempt. It doubles on each retry.
	BaseDelay time.Duration
	// MaxDelay caps a single delay. Zero means uncapped.
	MaxDelay time.Duration
	// Retryable decides whether an error is worth another attempt.
	// Nil retries every error.
	Retryable func(error) bool
}

// Do runs operation until it succeeds, fails with a non-retryable error,
// runs out of attempts or ctx is done.
// Returns the error from the last attempt if all attempts fail.
func (b Backoff) Do(ctx context.Context, operation func() error) error {
	if b.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil // Success
		}

		if b.Retryable != nil && !b.Retryable(lastErr) {
			return lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", b.MaxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == b.MaxAttempts {
			break
		}

		// Calculate exponential backoff: baseDelay * 2^(attempt-1)
		delay := b.BaseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
			if b.MaxDelay > 0 && delay >= b.MaxDelay {
				break
			}
		}
		if b.MaxDelay > 0 && delay > b.MaxDelay {
			delay = b.MaxDelay
		}

		// Sleep with context awareness
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Continue to next attempt
		}
	}

	return lastErr
}

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Every error is retried. Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	return Backoff{MaxAttempts: maxAttempts, BaseDelay: baseDelay}.Do(ctx, operation)
}

// IsTransient reports whether err is likely to go away on retry: timeouts,
// network failures, rate limiting and server-side (5xx) errors.
// Authentication, quota and other client errors are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrDimensionMismatch) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, permanent := range []string{"quota", "unauthorized", "invalid api key", "incorrect api key", "forbidden"} {
		if strings.Contains(msg, permanent) {
			return false
		}
	}
	for _, code := range statusCodes(msg) {
		if code == 429 || code >= 500 {
			return true
		}
	}
	for _, transient := range []string{
		"rate limit", "too many requests",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout",
		"timeout", "timed out", "connection refused", "connection reset", "unexpected eof",
	} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}

// isRateLimited reports whether err signals provider-side throttling.
func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") {
		return false
	}
	if slices.Contains(statusCodes(msg), 429) {
		return true
	}
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}
