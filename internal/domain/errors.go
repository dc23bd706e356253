package domain

import "errors"

var (
	ErrSpotNotFound       = errors.New("spot not found")
	ErrSpotUnavailable    = errors.New("spot unavailable")
	ErrDriverHasLiveHold  = errors.New("driver already has a live hold")
	ErrHoldNotFound       = errors.New("hold not found")
	ErrNoActiveHold       = errors.New("no active hold for spot")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrHoldExpired        = errors.New("hold expired")
	ErrNotCancellable     = errors.New("hold not cancellable")
	ErrHoldNotVerified    = errors.New("hold not verified")
	ErrAlreadyActivated   = errors.New("hold already activated")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionNotActive   = errors.New("session not active")
	ErrCodeSpaceExhausted = errors.New("verification code space exhausted")
	ErrInvalidID          = errors.New("invalid id")
	ErrOwnerIDRequired    = errors.New("owner id required")
	ErrInvalidRate        = errors.New("invalid rate")
	ErrInvalidBillingUnit = errors.New("invalid billing unit")
)
