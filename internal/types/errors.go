package types

import (
	"fmt"
	"time"
)

// AuthError means credentials are bad or expired. Retries cannot fix it,
// so it aborts the run.
type AuthError struct {
	Source string
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Source, e.Reason)
}

// RateLimitError is transient; callers retry with bounded backoff.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s)", e.Source, e.RetryAfter)
}

// DataUnavailableError means a specific item or price point cannot be
// fetched. The item is skipped; the run continues.
type DataUnavailableError struct {
	Source string
	Key    string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s: no data for %s", e.Source, e.Key)
}

// MalformedItemError means a fetched record failed shape validation at the
// collector boundary.
type MalformedItemError struct {
	Source string
	ItemID string
	Reason string
}

func (e *MalformedItemError) Error() string {
	return fmt.Sprintf("%s item %s malformed: %s", e.Source, e.ItemID, e.Reason)
}
