package models

import "time"

// LoginAttemptRecord tracks consecutive failed logins for one email.
// A non-nil LockedUntil in the future blocks authentication regardless of FailureCount.
type LoginAttemptRecord struct {
	Email         string     `db:"email"`
	FailureCount  int        `db:"attempts"`
	LockedUntil   *time.Time `db:"locked_until"`
	LastAttemptAt time.Time  `db:"last_attempt"`
}

// IsLocked reports whether the record blocks authentication at the given instant
func (r *LoginAttemptRecord) IsLocked(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}
