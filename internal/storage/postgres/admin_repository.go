package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohdshadink/spotshare/internal/domain"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *AdminRepository) CreateSpot(ctx context.Context, spot domain.Spot) error {
	const stmt = `
INSERT INTO spots (id, owner_id, state, rate_cents, billing_unit_minutes, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := exec(ctx, r.pool, stmt,
		spot.ID,
		spot.OwnerID,
		spot.State,
		spot.RateCents,
		spot.BillingUnitMinutes,
		spot.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create spot: %w", err)
	}
	return nil
}

func (r *AdminRepository) GetSpot(ctx context.Context, spotID string) (domain.Spot, error) {
	return getSpot(ctx, r.pool, spotID)
}

func (r *AdminRepository) GetSpotForUpdate(ctx context.Context, spotID string) (domain.Spot, error) {
	return getSpotForUpdate(ctx, r.pool, spotID)
}

func (r *AdminRepository) UpdateSpotState(ctx context.Context, spotID string, state domain.SpotState) error {
	return updateSpotState(ctx, r.pool, spotID, state)
}

func (r *AdminRepository) ListSpots(ctx context.Context) ([]domain.Spot, error) {
	q := `SELECT ` + spotColumns + ` FROM spots ORDER BY created_at ASC`

	rows, err := query(ctx, r.pool, q)
	if err != nil {
		return nil, fmt.Errorf("list spots: %w", err)
	}
	defer rows.Close()

	var out []domain.Spot
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, spot)
	}
	return out, rows.Err()
}
