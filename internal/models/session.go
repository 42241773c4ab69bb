package models

import "time"

// RevokedSession marks a session JWT as logged out until it would have expired anyway
type RevokedSession struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
	RevokedAt time.Time
}
