package app

import (
	"context"
	"time"

	"github.com/mohdshadink/spotshare/internal/clock"
	"github.com/mohdshadink/spotshare/internal/domain"
)

type ReconcileRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindLiveHoldByDriver(ctx context.Context, driverID string, now time.Time) (*domain.Hold, error)
	FindOccupyingSessionBySubject(ctx context.Context, subjectID string) (*domain.Session, error)
	GetSpot(ctx context.Context, spotID string) (domain.Spot, error)
}

// Snapshot is the current coordination state for one subject, read straight
// from the store. A client that missed events while disconnected applies it
// wholesale instead of replaying history.
type Snapshot struct {
	Hold    *domain.Hold
	Session *domain.Session
	Spot    *domain.Spot
	TakenAt time.Time
}

type ReconcileService struct {
	repo  ReconcileRepository
	clock clock.Clock
}

func NewReconcileService(repo ReconcileRepository, clk clock.Clock) *ReconcileService {
	return &ReconcileService{
		repo:  repo,
		clock: clk,
	}
}

// Snapshot returns the subject's live hold (as requester) and occupying
// session (as driver or owner), plus the spot they claim, if any.
func (s *ReconcileService) Snapshot(ctx context.Context, subjectID string) (Snapshot, error) {
	if subjectID == "" {
		return Snapshot{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	snap := Snapshot{TakenAt: now}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.FindLiveHoldByDriver(txCtx, subjectID, now)
		if err != nil {
			return err
		}
		snap.Hold = hold

		session, err := s.repo.FindOccupyingSessionBySubject(txCtx, subjectID)
		if err != nil {
			return err
		}
		snap.Session = session

		spotID := ""
		if session != nil {
			spotID = session.SpotID
		} else if hold != nil {
			spotID = hold.SpotID
		}
		if spotID != "" {
			spot, err := s.repo.GetSpot(txCtx, spotID)
			if err != nil {
				return err
			}
			snap.Spot = &spot
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
