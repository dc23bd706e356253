package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohdshadink/spotshare/internal/domain"
)

const spotColumns = `id, owner_id, state, rate_cents, billing_unit_minutes, created_at`

func scanSpot(row pgx.Row) (domain.Spot, error) {
	var s domain.Spot
	var state string
	err := row.Scan(&s.ID, &s.OwnerID, &state, &s.RateCents, &s.BillingUnitMinutes, &s.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Spot{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Spot{}, domain.ErrSpotNotFound
		}
		return domain.Spot{}, fmt.Errorf("scan spot: %w", err)
	}
	s.State = domain.SpotState(state)
	return s, nil
}

func getSpot(ctx context.Context, pool *pgxpool.Pool, spotID string) (domain.Spot, error) {
	q := `SELECT ` + spotColumns + ` FROM spots WHERE id = $1`
	return scanSpot(queryRow(ctx, pool, q, spotID))
}

// getSpotForUpdate locks the spot row for the rest of the transaction. Every
// mutation of a spot or its live hold/session takes this lock first, which is
// the per-spot critical section all lifecycle operations serialize on.
func getSpotForUpdate(ctx context.Context, pool *pgxpool.Pool, spotID string) (domain.Spot, error) {
	q := `SELECT ` + spotColumns + ` FROM spots WHERE id = $1 FOR UPDATE`
	return scanSpot(queryRow(ctx, pool, q, spotID))
}

func updateSpotState(ctx context.Context, pool *pgxpool.Pool, spotID string, state domain.SpotState) error {
	tag, err := exec(ctx, pool, `UPDATE spots SET state = $2 WHERE id = $1`, spotID, state)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update spot state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSpotNotFound
	}
	return nil
}
