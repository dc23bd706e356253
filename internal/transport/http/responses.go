package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mohdshadink/spotshare/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type spotResponse struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"owner_id"`
	State              string    `json:"state"`
	RateCents          int       `json:"rate_cents"`
	BillingUnitMinutes int       `json:"billing_unit_minutes"`
	CreatedAt          time.Time `json:"created_at"`
}

func toSpotResponse(s domain.Spot) spotResponse {
	return spotResponse{
		ID:                 s.ID,
		OwnerID:            s.OwnerID,
		State:              string(s.State),
		RateCents:          s.RateCents,
		BillingUnitMinutes: s.BillingUnitMinutes,
		CreatedAt:          s.CreatedAt,
	}
}

type holdResponse struct {
	ID         string     `json:"id"`
	SpotID     string     `json:"spot_id"`
	DriverID   string     `json:"driver_id"`
	Code       string     `json:"code"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

func toHoldResponse(h domain.Hold) holdResponse {
	return holdResponse{
		ID:         h.ID,
		SpotID:     h.SpotID,
		DriverID:   h.DriverID,
		Code:       h.Code,
		Status:     string(h.Status),
		CreatedAt:  h.CreatedAt,
		ExpiresAt:  h.ExpiresAt,
		VerifiedAt: h.VerifiedAt,
	}
}

type sessionResponse struct {
	ID              string     `json:"id"`
	HoldID          string     `json:"hold_id"`
	SpotID          string     `json:"spot_id"`
	DriverID        string     `json:"driver_id"`
	OwnerID         string     `json:"owner_id"`
	PaymentRef      string     `json:"payment_ref,omitempty"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	CostCents       int64      `json:"cost_cents"`
	Overstayed      bool       `json:"overstayed"`
	OverstayAlerts  int        `json:"overstay_alerts"`
}

func toSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		ID:              s.ID,
		HoldID:          s.HoldID,
		SpotID:          s.SpotID,
		DriverID:        s.DriverID,
		OwnerID:         s.OwnerID,
		PaymentRef:      s.PaymentRef,
		Status:          string(s.Status),
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		DurationSeconds: int64(s.Duration / time.Second),
		CostCents:       s.CostCents,
		Overstayed:      s.Overstayed,
		OverstayAlerts:  s.OverstayAlerts,
	}
}
