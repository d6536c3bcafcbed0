package model

import (
	"strings"
	"time"
)

// LockRecord is the advisory marker of write ownership over the shared data file.
type LockRecord struct {
	Owner   string
	When    time.Time
	PID     int
	Session string
}

// Age returns how long ago the record was written.
func (r LockRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.When)
}

// IsStale returns true when the record is older than the threshold.
func (r LockRecord) IsStale(now time.Time, threshold time.Duration) bool {
	return r.Age(now) > threshold
}

// IsOwnedBy returns true if the record belongs to owner.
func (r LockRecord) IsOwnedBy(owner string) bool {
	return strings.EqualFold(strings.TrimSpace(r.Owner), strings.TrimSpace(owner))
}

// LockState is the lock state as seen by a session.
type LockState string

const (
	LockStateUnlocked         LockState = "unlocked"
	LockStateHeld             LockState = "held"
	LockStateHeldByOther      LockState = "held-by-other"
	LockStateStaleHeldByOther LockState = "stale-held-by-other"
	LockStateTakeoverPending  LockState = "takeover-pending"
)

// LockStatus is the observed lock status of the shared data file.
type LockStatus struct {
	State    LockState
	Record   *LockRecord
	Age      time.Duration
	ReadOnly bool
}
