package domain

import "time"

type EventType string

const (
	EventSpotStateChanged      EventType = "spot.state_changed"
	EventHoldCreated           EventType = "hold.created"
	EventHoldExpired           EventType = "hold.expired"
	EventVerificationCompleted EventType = "verification.completed"
	EventSessionActivated      EventType = "session.activated"
	EventSessionEnded          EventType = "session.ended"
	EventOverstayAlert         EventType = "overstay.alert"
)

// Event is a state-change notification fanned out to subscribers of the
// affected spot and subjects. Fields not relevant to a given type are empty.
type Event struct {
	Type          EventType `json:"type"`
	SpotID        string    `json:"spot_id,omitempty"`
	HoldID        string    `json:"hold_id,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	DriverID      string    `json:"driver_id,omitempty"`
	OwnerID       string    `json:"owner_id,omitempty"`
	SpotState     SpotState `json:"spot_state,omitempty"`
	OverstayCount int       `json:"overstay_count,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
