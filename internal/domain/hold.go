package domain

import "time"

type HoldStatus string

const (
	HoldStatusPending   HoldStatus = "pending"
	HoldStatusVerified  HoldStatus = "verified"
	HoldStatusExpired   HoldStatus = "expired"
	HoldStatusCancelled HoldStatus = "cancelled"
)

// Hold is a time-bounded claim on a spot pending code verification.
// The deadline is authoritative at read time: a pending hold whose ExpiresAt
// has passed counts as expired everywhere, whether or not the sweep has
// transitioned it yet.
type Hold struct {
	ID         string
	SpotID     string
	DriverID   string
	Code       string
	Status     HoldStatus
	CreatedAt  time.Time
	ExpiresAt  time.Time
	VerifiedAt *time.Time
}

// Expired reports whether the hold's deadline has passed at now.
func (h Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
