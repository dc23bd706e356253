package domain

import "time"

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusDisputed  SessionStatus = "disputed"
)

// Session is an active occupancy period created exactly once from a verified
// hold. Sessions are retained as history and never deleted.
type Session struct {
	ID             string
	HoldID         string
	SpotID         string
	DriverID       string
	OwnerID        string
	PaymentRef     string
	Status         SessionStatus
	StartedAt      time.Time
	EndedAt        *time.Time
	Duration       time.Duration
	CostCents      int64
	Overstayed     bool
	OverstayAlerts int
}

// Occupying reports whether the session still owns its spot. A disputed
// session keeps the spot occupied until resolved out of band.
func (s Session) Occupying() bool {
	return s.Status == SessionStatusActive || s.Status == SessionStatusDisputed
}
