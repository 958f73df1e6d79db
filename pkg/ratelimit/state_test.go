package ratelimit

import (
	"testing"
	"time"
)

func TestState_IsBlocked(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		blockedUntil time.Time
		wantBlocked  bool
		wantWait     time.Duration
	}{
		{name: "zero state", blockedUntil: time.Time{}, wantBlocked: false, wantWait: 0},
		{name: "future block", blockedUntil: now.Add(30 * time.Second), wantBlocked: true, wantWait: 30 * time.Second},
		{name: "expired block", blockedUntil: now.Add(-time.Second), wantBlocked: false, wantWait: 0},
		{name: "exactly now", blockedUntil: now, wantBlocked: false, wantWait: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{BlockedUntil: tt.blockedUntil}
			if got := s.IsBlocked(now); got != tt.wantBlocked {
				t.Errorf("IsBlocked() = %v, want %v", got, tt.wantBlocked)
			}
			if got := s.TimeUntilUnblocked(now); got != tt.wantWait {
				t.Errorf("TimeUntilUnblocked() = %v, want %v", got, tt.wantWait)
			}
		})
	}
}

func TestState_IsStale(t *testing.T) {
	now := time.Now()
	s := State{LastUpdate: now.Add(-2 * time.Minute)}

	if !s.IsStale(now, time.Minute) {
		t.Error("state updated 2m ago should be stale after 1m")
	}
	if s.IsStale(now, 5*time.Minute) {
		t.Error("state updated 2m ago should not be stale after 5m")
	}
}
