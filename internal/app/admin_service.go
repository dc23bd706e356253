package app

import (
	"context"

	"github.com/mohdshadink/spotshare/internal/clock"
	"github.com/mohdshadink/spotshare/internal/domain"
	"github.com/mohdshadink/spotshare/internal/notify"
)

type AdminRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateSpot(ctx context.Context, spot domain.Spot) error
	GetSpot(ctx context.Context, spotID string) (domain.Spot, error)
	GetSpotForUpdate(ctx context.Context, spotID string) (domain.Spot, error)
	ListSpots(ctx context.Context) ([]domain.Spot, error)
	UpdateSpotState(ctx context.Context, spotID string, state domain.SpotState) error
}

type AdminService struct {
	repo   AdminRepository
	events EventPublisher
	clock  clock.Clock
}

func NewAdminService(repo AdminRepository, events EventPublisher, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:   repo,
		events: events,
		clock:  clk,
	}
}

type CreateSpotInput struct {
	OwnerID            string
	RateCents          int
	BillingUnitMinutes int
}

const defaultBillingUnitMinutes = 60

func (s *AdminService) CreateSpot(ctx context.Context, in CreateSpotInput) (domain.Spot, error) {
	if in.OwnerID == "" {
		return domain.Spot{}, domain.ErrOwnerIDRequired
	}
	if in.RateCents <= 0 {
		return domain.Spot{}, domain.ErrInvalidRate
	}
	unit := in.BillingUnitMinutes
	if unit == 0 {
		unit = defaultBillingUnitMinutes
	}
	if unit < 0 {
		return domain.Spot{}, domain.ErrInvalidBillingUnit
	}

	spot := domain.Spot{
		ID:                 newID(),
		OwnerID:            in.OwnerID,
		State:              domain.SpotStateAvailable,
		RateCents:          in.RateCents,
		BillingUnitMinutes: unit,
		CreatedAt:          s.clock.Now(),
	}

	if err := s.repo.CreateSpot(ctx, spot); err != nil {
		return domain.Spot{}, err
	}
	return spot, nil
}

func (s *AdminService) GetSpot(ctx context.Context, spotID string) (domain.Spot, error) {
	if spotID == "" {
		return domain.Spot{}, domain.ErrInvalidID
	}
	return s.repo.GetSpot(ctx, spotID)
}

func (s *AdminService) ListSpots(ctx context.Context) ([]domain.Spot, error) {
	return s.repo.ListSpots(ctx)
}

// SuspendSpot is the fraud-workflow side channel: it forces the spot to
// suspended regardless of any live hold or session and blocks new holds.
// Suspending an already suspended spot is a no-op.
func (s *AdminService) SuspendSpot(ctx context.Context, spotID string) (domain.Spot, error) {
	if spotID == "" {
		return domain.Spot{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var spot domain.Spot
	var changed bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		spot, err = s.repo.GetSpotForUpdate(txCtx, spotID)
		if err != nil {
			return err
		}
		if spot.State == domain.SpotStateSuspended {
			return nil
		}
		if err := s.repo.UpdateSpotState(txCtx, spotID, domain.SpotStateSuspended); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return domain.Spot{}, err
	}

	spot.State = domain.SpotStateSuspended
	if changed {
		s.events.Publish(domain.Event{
			Type:       domain.EventSpotStateChanged,
			SpotID:     spot.ID,
			OwnerID:    spot.OwnerID,
			SpotState:  domain.SpotStateSuspended,
			OccurredAt: now,
		}, notify.SpotTopic(spot.ID), notify.SubjectTopic(spot.OwnerID))
	}
	return spot, nil
}
