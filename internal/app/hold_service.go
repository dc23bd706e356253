package app

import (
	"context"
	"errors"
	"time"

	"github.com/mohdshadink/spotshare/internal/clock"
	"github.com/mohdshadink/spotshare/internal/code"
	"github.com/mohdshadink/spotshare/internal/domain"
	"github.com/mohdshadink/spotshare/internal/notify"
)

// EventPublisher fans a committed state change out to topic subscribers.
type EventPublisher interface {
	Publish(ev domain.Event, topics ...string)
}

type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetSpotForUpdate(ctx context.Context, spotID string) (domain.Spot, error)
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
	FindPendingHoldBySpot(ctx context.Context, spotID string) (*domain.Hold, error)
	FindLiveHoldByDriver(ctx context.Context, driverID string, now time.Time) (*domain.Hold, error)
	HoldHasSession(ctx context.Context, holdID string) (bool, error)
	LiveCodes(ctx context.Context, now time.Time) (map[string]struct{}, error)
	CreateHold(ctx context.Context, hold domain.Hold) error
	UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus, verifiedAt *time.Time) error
	UpdateSpotState(ctx context.Context, spotID string, state domain.SpotState) error
	ListExpiredPendingHoldIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type HoldService struct {
	repo    HoldRepository
	events  EventPublisher
	clock   clock.Clock
	holdTTL time.Duration
}

const DefaultHoldTTL = 15 * time.Minute

const sweepBatchSize = 100

func NewHoldService(repo HoldRepository, events EventPublisher, clk clock.Clock, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		repo:    repo,
		events:  events,
		clock:   clk,
		holdTTL: DefaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default window a hold stays claimable.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

type CreateHoldInput struct {
	DriverID string
	SpotID   string
}

// CreateHold claims an available spot for the driver: it mints a unique
// verification code, records the pending hold with its deadline and flips the
// spot to held, all in one transaction serialized on the spot row.
func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Hold, error) {
	if in.DriverID == "" || in.SpotID == "" {
		return domain.Hold{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.Hold
	var spot domain.Spot

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		spot, err = s.repo.GetSpotForUpdate(txCtx, in.SpotID)
		if err != nil {
			return err
		}
		if spot.State != domain.SpotStateAvailable {
			return domain.ErrSpotUnavailable
		}

		// LiveCodes takes the global code-mint lock; checking the driver's
		// exclusivity after it means two creates by the same driver on
		// different spots cannot both pass the check.
		inUse, err := s.repo.LiveCodes(txCtx, now)
		if err != nil {
			return err
		}

		live, err := s.repo.FindLiveHoldByDriver(txCtx, in.DriverID, now)
		if err != nil {
			return err
		}
		if live != nil {
			return domain.ErrDriverHasLiveHold
		}
		verification, err := code.Generate(inUse)
		if err != nil {
			if errors.Is(err, code.ErrSpaceExhausted) {
				return domain.ErrCodeSpaceExhausted
			}
			return err
		}

		hold := domain.Hold{
			ID:        newID(),
			SpotID:    in.SpotID,
			DriverID:  in.DriverID,
			Code:      verification,
			Status:    domain.HoldStatusPending,
			CreatedAt: now,
			ExpiresAt: now.Add(s.holdTTL),
		}

		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			return err
		}
		if err := s.repo.UpdateSpotState(txCtx, in.SpotID, domain.SpotStateHeld); err != nil {
			return err
		}

		result = hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}

	s.events.Publish(domain.Event{
		Type:       domain.EventHoldCreated,
		SpotID:     spot.ID,
		HoldID:     result.ID,
		DriverID:   result.DriverID,
		OwnerID:    spot.OwnerID,
		OccurredAt: now,
	}, holdTopics(spot, result.DriverID)...)
	s.publishSpotChange(spot, domain.SpotStateHeld, result.DriverID, now)

	return result, nil
}

// VerifyCode checks the presented code against the spot's pending hold. The
// deadline is consulted directly: a hold past its deadline is claimed as
// expired here and now, so sweep latency can never let a stale code succeed.
func (s *HoldService) VerifyCode(ctx context.Context, spotID, presented string) (domain.Hold, error) {
	if spotID == "" {
		return domain.Hold{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.Hold
	var spot domain.Spot
	var expired *domain.Hold
	var released bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		spot, err = s.repo.GetSpotForUpdate(txCtx, spotID)
		if err != nil {
			return err
		}

		hold, err := s.repo.FindPendingHoldBySpot(txCtx, spotID)
		if err != nil {
			return err
		}
		if hold == nil {
			return domain.ErrNoActiveHold
		}

		if hold.Expired(now) {
			released, err = s.expireInTx(txCtx, *hold, spot)
			if err != nil {
				return err
			}
			expired = hold
			return nil
		}

		if hold.Code != presented {
			return domain.ErrInvalidCode
		}

		if err := s.repo.UpdateHoldStatus(txCtx, hold.ID, domain.HoldStatusVerified, &now); err != nil {
			return err
		}
		hold.Status = domain.HoldStatusVerified
		hold.VerifiedAt = &now
		result = *hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}

	if expired != nil {
		s.publishExpiry(*expired, spot, released, now)
		return domain.Hold{}, domain.ErrHoldExpired
	}

	s.events.Publish(domain.Event{
		Type:       domain.EventVerificationCompleted,
		SpotID:     spot.ID,
		HoldID:     result.ID,
		DriverID:   result.DriverID,
		OwnerID:    spot.OwnerID,
		OccurredAt: now,
	}, holdTopics(spot, result.DriverID)...)

	return result, nil
}

// CancelHold withdraws a hold that has not become a session yet and returns
// the spot to availability. Pending and verified holds both qualify: before
// activation the driver can still back out.
func (s *HoldService) CancelHold(ctx context.Context, holdID string) error {
	if holdID == "" {
		return domain.ErrInvalidID
	}

	now := s.clock.Now()
	var spot domain.Spot
	var cancelled domain.Hold
	var expired *domain.Hold
	var released bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHold(txCtx, holdID)
		if err != nil {
			return err
		}

		spot, err = s.repo.GetSpotForUpdate(txCtx, hold.SpotID)
		if err != nil {
			return err
		}
		// Re-read now that the spot row is locked; the first read could have
		// raced another mutation on the same spot.
		hold, err = s.repo.GetHold(txCtx, holdID)
		if err != nil {
			return err
		}

		switch hold.Status {
		case domain.HoldStatusPending:
			if hold.Expired(now) {
				released, err = s.expireInTx(txCtx, hold, spot)
				if err != nil {
					return err
				}
				expired = &hold
				return nil
			}
		case domain.HoldStatusVerified:
			// A verified hold keeps the driver occupied until it becomes a
			// session, so cancellation is the only exit when the spot was
			// suspended after verification. Once a session exists, closing
			// that session is the way out instead.
			activated, err := s.repo.HoldHasSession(txCtx, hold.ID)
			if err != nil {
				return err
			}
			if activated {
				return domain.ErrNotCancellable
			}
		default:
			return domain.ErrNotCancellable
		}

		if err := s.repo.UpdateHoldStatus(txCtx, hold.ID, domain.HoldStatusCancelled, nil); err != nil {
			return err
		}
		released, err = s.releaseSpot(txCtx, spot)
		if err != nil {
			return err
		}
		cancelled = hold
		return nil
	})
	if err != nil {
		return err
	}

	if expired != nil {
		s.publishExpiry(*expired, spot, released, now)
		return domain.ErrHoldExpired
	}

	if released {
		s.publishSpotChange(spot, domain.SpotStateAvailable, cancelled.DriverID, now)
	}
	return nil
}

// ExpireDue transitions every pending hold past its deadline to expired and
// releases its spot, one transaction per hold so a single failure never blocks
// the rest of the sweep. It returns how many holds were expired.
func (s *HoldService) ExpireDue(ctx context.Context) (int, error) {
	now := s.clock.Now()
	ids, err := s.repo.ListExpiredPendingHoldIDs(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for _, id := range ids {
		claimed, err := s.expireOne(ctx, id, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if claimed {
			expired++
		}
	}
	return expired, errors.Join(errs...)
}

func (s *HoldService) expireOne(ctx context.Context, holdID string, now time.Time) (bool, error) {
	var spot domain.Spot
	var hold domain.Hold
	var released, claimed bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		hold, err = s.repo.GetHold(txCtx, holdID)
		if err != nil {
			return err
		}
		spot, err = s.repo.GetSpotForUpdate(txCtx, hold.SpotID)
		if err != nil {
			return err
		}
		hold, err = s.repo.GetHold(txCtx, holdID)
		if err != nil {
			return err
		}

		// Another operation may have claimed the hold between the scan and
		// this transaction; losing that race is a no-op.
		if hold.Status != domain.HoldStatusPending || !hold.Expired(now) {
			return nil
		}

		released, err = s.expireInTx(txCtx, hold, spot)
		if err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if claimed {
		s.publishExpiry(hold, spot, released, now)
	}
	return claimed, nil
}

func (s *HoldService) expireInTx(ctx context.Context, hold domain.Hold, spot domain.Spot) (released bool, err error) {
	if err := s.repo.UpdateHoldStatus(ctx, hold.ID, domain.HoldStatusExpired, nil); err != nil {
		return false, err
	}
	return s.releaseSpot(ctx, spot)
}

// releaseSpot returns the spot to availability unless it was suspended, which
// a lifecycle transition must never undo.
func (s *HoldService) releaseSpot(ctx context.Context, spot domain.Spot) (bool, error) {
	if spot.State == domain.SpotStateSuspended {
		return false, nil
	}
	if err := s.repo.UpdateSpotState(ctx, spot.ID, domain.SpotStateAvailable); err != nil {
		return false, err
	}
	return true, nil
}

func (s *HoldService) publishExpiry(hold domain.Hold, spot domain.Spot, released bool, now time.Time) {
	s.events.Publish(domain.Event{
		Type:       domain.EventHoldExpired,
		SpotID:     spot.ID,
		HoldID:     hold.ID,
		DriverID:   hold.DriverID,
		OwnerID:    spot.OwnerID,
		OccurredAt: now,
	}, holdTopics(spot, hold.DriverID)...)
	if released {
		s.publishSpotChange(spot, domain.SpotStateAvailable, hold.DriverID, now)
	}
}

func (s *HoldService) publishSpotChange(spot domain.Spot, state domain.SpotState, driverID string, now time.Time) {
	s.events.Publish(domain.Event{
		Type:       domain.EventSpotStateChanged,
		SpotID:     spot.ID,
		OwnerID:    spot.OwnerID,
		DriverID:   driverID,
		SpotState:  state,
		OccurredAt: now,
	}, holdTopics(spot, driverID)...)
}

func holdTopics(spot domain.Spot, driverID string) []string {
	topics := []string{notify.SpotTopic(spot.ID), notify.SubjectTopic(spot.OwnerID)}
	if driverID != "" {
		topics = append(topics, notify.SubjectTopic(driverID))
	}
	return topics
}
