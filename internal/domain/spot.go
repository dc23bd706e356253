package domain

import "time"

type SpotState string

const (
	SpotStateAvailable SpotState = "available"
	SpotStateHeld      SpotState = "held"
	SpotStateActive    SpotState = "active"
	SpotStateSuspended SpotState = "suspended"
)

// Spot represents a single listed parking spot. Occupancy is singleton: a spot
// is held or active if and only if exactly one live hold or session owns it.
type Spot struct {
	ID                 string
	OwnerID            string
	State              SpotState
	RateCents          int
	BillingUnitMinutes int
	CreatedAt          time.Time
}
