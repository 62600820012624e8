package models

import "time"

// RefreshToken is a single-use token that trades for a new token pair until
// ExpiresAt. Rotation deletes it.
type RefreshToken struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewRefreshToken issues token for userID at now, valid for validity.
func NewRefreshToken(userID, token string, now time.Time, validity time.Duration) RefreshToken {
	return RefreshToken{UserID: userID, Token: token, ExpiresAt: now.Add(validity), CreatedAt: now}
}

// Expired reports whether t can no longer be redeemed at now. A token is
// still valid at the exact instant it expires.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Remaining is the validity left at now, never negative.
func (t RefreshToken) Remaining(now time.Time) time.Duration {
	return max(t.ExpiresAt.Sub(now), 0)
}
