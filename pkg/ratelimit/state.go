// Package ratelimit shares a server-imposed cooldown between clients.
// When the Jobsuche service answers 429 with a Retry-After hint, the block is
// recorded in a Store so every client reading the same store holds back
// until it expires, not only the client that was throttled.
package ratelimit

import (
	"time"
)

// Redis keys for cooldown state storage.
const (
	RedisKeyBlockedUntil = "jobsuche:rate_limit:blocked_until"
	RedisKeyLastUpdate   = "jobsuche:rate_limit:last_update"
)

// State is the cooldown currently imposed by the service.
type State struct {
	// BlockedUntil is the instant before which no request should be sent.
	// The zero value means no block is known.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is when the block was last extended.
	LastUpdate time.Time `json:"last_update"`
}

// IsBlocked reports whether the cooldown is still active at now.
func (s *State) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// TimeUntilUnblocked returns how long to wait from now. Zero once the block has passed.
func (s *State) TimeUntilUnblocked(now time.Time) time.Duration {
	if d := s.BlockedUntil.Sub(now); d > 0 {
		return d
	}
	return 0
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastUpdate) > maxAge
}
