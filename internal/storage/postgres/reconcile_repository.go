package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohdshadink/spotshare/internal/domain"
)

// ReconcileRepository serves reconnection snapshots. It is read-only with
// respect to occupancy state.
type ReconcileRepository struct {
	pool *pgxpool.Pool
}

func NewReconcileRepository(pool *pgxpool.Pool) *ReconcileRepository {
	return &ReconcileRepository{pool: pool}
}

func (r *ReconcileRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReconcileRepository) GetSpot(ctx context.Context, spotID string) (domain.Spot, error) {
	return getSpot(ctx, r.pool, spotID)
}

func (r *ReconcileRepository) FindLiveHoldByDriver(ctx context.Context, driverID string, now time.Time) (*domain.Hold, error) {
	q := `SELECT ` + holdColumns + ` FROM holds h WHERE h.driver_id = $2 AND ` + liveHoldPredicate
	h, err := scanHold(queryRow(ctx, r.pool, q, now, driverID))
	if err != nil {
		if err == domain.ErrHoldNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

func (r *ReconcileRepository) FindOccupyingSessionBySubject(ctx context.Context, subjectID string) (*domain.Session, error) {
	// An owner can have occupying sessions on several spots at once; the
	// snapshot carries the most recently started one.
	q := `SELECT ` + sessionColumns + ` FROM sessions s
WHERE (s.driver_id = $1 OR s.owner_id = $1) AND s.status IN ('active', 'disputed')
ORDER BY s.started_at DESC LIMIT 1`

	s, err := scanSession(queryRow(ctx, r.pool, q, subjectID))
	if err != nil {
		if err == domain.ErrSessionNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
