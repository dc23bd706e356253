package app

import (
	"context"
	"errors"
	"time"

	"github.com/mohdshadink/spotshare/internal/clock"
	"github.com/mohdshadink/spotshare/internal/domain"
	"github.com/mohdshadink/spotshare/internal/notify"
)

type SessionRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetSpotForUpdate(ctx context.Context, spotID string) (domain.Spot, error)
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	GetSessionByHoldID(ctx context.Context, holdID string) (*domain.Session, error)
	CreateSession(ctx context.Context, session domain.Session) error
	CloseSession(ctx context.Context, session domain.Session) error
	SetSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error
	BumpOverstay(ctx context.Context, sessionID string) (int, error)
	ListOverstayedActive(ctx context.Context) ([]domain.Session, error)
	UpdateSpotState(ctx context.Context, spotID string, state domain.SpotState) error
}

type SessionService struct {
	repo   SessionRepository
	events EventPublisher
	clock  clock.Clock
}

func NewSessionService(repo SessionRepository, events EventPublisher, clk clock.Clock) *SessionService {
	return &SessionService{
		repo:   repo,
		events: events,
		clock:  clk,
	}
}

type ActivateInput struct {
	HoldID     string
	PaymentRef string
}

// Activate promotes a verified hold into an active occupancy session, exactly
// once per hold, and flips the spot to active. The payment reference is stored
// verbatim; no validation happens against any payment provider.
func (s *SessionService) Activate(ctx context.Context, in ActivateInput) (domain.Session, error) {
	if in.HoldID == "" {
		return domain.Session{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.Session
	var spot domain.Spot

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHold(txCtx, in.HoldID)
		if err != nil {
			return err
		}

		spot, err = s.repo.GetSpotForUpdate(txCtx, hold.SpotID)
		if err != nil {
			return err
		}
		hold, err = s.repo.GetHold(txCtx, in.HoldID)
		if err != nil {
			return err
		}

		existing, err := s.repo.GetSessionByHoldID(txCtx, in.HoldID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyActivated
		}

		if hold.Status != domain.HoldStatusVerified {
			return domain.ErrHoldNotVerified
		}
		if spot.State == domain.SpotStateSuspended {
			return domain.ErrSpotUnavailable
		}

		session := domain.Session{
			ID:         newID(),
			HoldID:     hold.ID,
			SpotID:     hold.SpotID,
			DriverID:   hold.DriverID,
			OwnerID:    spot.OwnerID,
			PaymentRef: in.PaymentRef,
			Status:     domain.SessionStatusActive,
			StartedAt:  now,
		}

		if err := s.repo.CreateSession(txCtx, session); err != nil {
			return err
		}
		if err := s.repo.UpdateSpotState(txCtx, hold.SpotID, domain.SpotStateActive); err != nil {
			return err
		}

		result = session
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}

	s.publishSession(domain.EventSessionActivated, result, now)
	s.publishSpotChange(spot, result, domain.SpotStateActive, now)

	return result, nil
}

// Close ends an active session: it stamps the end time, computes duration and
// cost from the spot's rate, and returns the spot to availability.
func (s *SessionService) Close(ctx context.Context, sessionID string) (domain.Session, error) {
	if sessionID == "" {
		return domain.Session{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.Session
	var spot domain.Spot
	var released bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		session, err := s.repo.GetSession(txCtx, sessionID)
		if err != nil {
			return err
		}
		spot, err = s.repo.GetSpotForUpdate(txCtx, session.SpotID)
		if err != nil {
			return err
		}
		session, err = s.repo.GetSession(txCtx, sessionID)
		if err != nil {
			return err
		}

		if session.Status != domain.SessionStatusActive {
			return domain.ErrSessionNotActive
		}

		ended := now
		session.EndedAt = &ended
		session.Duration = ended.Sub(session.StartedAt)
		session.CostCents = billedCost(spot, session.Duration)
		session.Status = domain.SessionStatusCompleted

		if err := s.repo.CloseSession(txCtx, session); err != nil {
			return err
		}
		if spot.State != domain.SpotStateSuspended {
			if err := s.repo.UpdateSpotState(txCtx, session.SpotID, domain.SpotStateAvailable); err != nil {
				return err
			}
			released = true
		}

		result = session
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}

	s.publishSession(domain.EventSessionEnded, result, now)
	if released {
		s.publishSpotChange(spot, result, domain.SpotStateAvailable, now)
	}

	return result, nil
}

// ReportOverstay flags an active session as overstayed and emits the first
// alert. The overstay notifier re-emits alerts on its interval until close.
func (s *SessionService) ReportOverstay(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.Session
	var count int

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		session, err := s.repo.GetSession(txCtx, sessionID)
		if err != nil {
			return err
		}
		if _, err := s.repo.GetSpotForUpdate(txCtx, session.SpotID); err != nil {
			return err
		}
		session, err = s.repo.GetSession(txCtx, sessionID)
		if err != nil {
			return err
		}

		if session.Status != domain.SessionStatusActive {
			return domain.ErrSessionNotActive
		}

		count, err = s.repo.BumpOverstay(txCtx, sessionID)
		if err != nil {
			return err
		}
		result = session
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.publishOverstay(result, count, now)
	return count, nil
}

// NotifyOverstays re-emits one alert for every active flagged session and
// bumps its counter. Called by the overstay notifier on its interval.
func (s *SessionService) NotifyOverstays(ctx context.Context) (int, error) {
	sessions, err := s.repo.ListOverstayedActive(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	alerts := 0
	var errs []error
	for _, session := range sessions {
		count, err := s.repo.BumpOverstay(ctx, session.ID)
		if err != nil {
			// Closed since the scan; its alerts stop here.
			if errors.Is(err, domain.ErrSessionNotActive) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		s.publishOverstay(session, count, now)
		alerts++
	}
	return alerts, errors.Join(errs...)
}

// MarkDisputed records an external dispute on an active session. The spot's
// occupancy state is deliberately untouched; disputes are resolved out of band.
func (s *SessionService) MarkDisputed(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return domain.ErrInvalidID
	}

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		session, err := s.repo.GetSession(txCtx, sessionID)
		if err != nil {
			return err
		}
		if _, err := s.repo.GetSpotForUpdate(txCtx, session.SpotID); err != nil {
			return err
		}
		session, err = s.repo.GetSession(txCtx, sessionID)
		if err != nil {
			return err
		}

		if session.Status != domain.SessionStatusActive {
			return domain.ErrSessionNotActive
		}
		return s.repo.SetSessionStatus(txCtx, sessionID, domain.SessionStatusDisputed)
	})
}

// billedCost rounds the stay up to whole billing units and charges the spot's
// rate per unit. Any stay, however brief, bills at least one unit.
func billedCost(spot domain.Spot, stay time.Duration) int64 {
	unit := time.Duration(spot.BillingUnitMinutes) * time.Minute
	if unit <= 0 {
		unit = time.Hour
	}
	units := int64((stay + unit - 1) / unit)
	if units < 1 {
		units = 1
	}
	return units * int64(spot.RateCents)
}

func (s *SessionService) publishSession(typ domain.EventType, session domain.Session, now time.Time) {
	s.events.Publish(domain.Event{
		Type:       typ,
		SpotID:     session.SpotID,
		HoldID:     session.HoldID,
		SessionID:  session.ID,
		DriverID:   session.DriverID,
		OwnerID:    session.OwnerID,
		OccurredAt: now,
	}, sessionTopics(session)...)
}

func (s *SessionService) publishSpotChange(spot domain.Spot, session domain.Session, state domain.SpotState, now time.Time) {
	s.events.Publish(domain.Event{
		Type:       domain.EventSpotStateChanged,
		SpotID:     spot.ID,
		OwnerID:    spot.OwnerID,
		DriverID:   session.DriverID,
		SpotState:  state,
		OccurredAt: now,
	}, sessionTopics(session)...)
}

func sessionTopics(session domain.Session) []string {
	return []string{
		notify.SpotTopic(session.SpotID),
		notify.SubjectTopic(session.OwnerID),
		notify.SubjectTopic(session.DriverID),
	}
}

func (s *SessionService) publishOverstay(session domain.Session, count int, now time.Time) {
	s.events.Publish(domain.Event{
		Type:          domain.EventOverstayAlert,
		SpotID:        session.SpotID,
		SessionID:     session.ID,
		DriverID:      session.DriverID,
		OwnerID:       session.OwnerID,
		OverstayCount: count,
		OccurredAt:    now,
	}, sessionTopics(session)...)
}
