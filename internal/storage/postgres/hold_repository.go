package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohdshadink/spotshare/internal/domain"
)

// liveHoldPredicate selects holds that still participate in exclusivity and
// code-uniqueness checks: pending and unexpired at read time, or verified
// whose session (if any) still occupies the spot. The deadline comparison
// makes expiry authoritative at read time; the sweep is only cleanup.
const liveHoldPredicate = `
(
	(h.status = 'pending' AND h.expires_at > $1)
	OR (h.status = 'verified' AND NOT EXISTS (
		SELECT 1 FROM sessions s WHERE s.hold_id = h.id AND s.status = 'completed'
	))
)`

const holdColumns = `h.id, h.spot_id, h.driver_id, h.code, h.status, h.created_at, h.expires_at, h.verified_at`

// codeMintLockID serializes code minting across spots within a transaction;
// the spot row lock alone cannot guarantee global code uniqueness.
const codeMintLockID int64 = 727501447

type HoldRepository struct {
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *HoldRepository) GetSpotForUpdate(ctx context.Context, spotID string) (domain.Spot, error) {
	return getSpotForUpdate(ctx, r.pool, spotID)
}

func (r *HoldRepository) UpdateSpotState(ctx context.Context, spotID string, state domain.SpotState) error {
	return updateSpotState(ctx, r.pool, spotID, state)
}

func (r *HoldRepository) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	q := `SELECT ` + holdColumns + ` FROM holds h WHERE h.id = $1`
	return scanHold(queryRow(ctx, r.pool, q, holdID))
}

func (r *HoldRepository) FindPendingHoldBySpot(ctx context.Context, spotID string) (*domain.Hold, error) {
	q := `SELECT ` + holdColumns + ` FROM holds h WHERE h.spot_id = $1 AND h.status = 'pending'`
	h, err := scanHold(queryRow(ctx, r.pool, q, spotID))
	if err != nil {
		if err == domain.ErrHoldNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

func (r *HoldRepository) FindLiveHoldByDriver(ctx context.Context, driverID string, now time.Time) (*domain.Hold, error) {
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

func (r *HoldRepository) HoldHasSession(ctx context.Context, holdID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM sessions s WHERE s.hold_id = $1)`

	var exists bool
	if err := queryRow(ctx, r.pool, q, holdID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("hold has session: %w", err)
	}
	return exists, nil
}

// LiveCodes returns every verification code currently in use. It takes a
// transaction-scoped advisory lock first so two concurrent mints on different
// spots cannot both read the set and pick the same free code.
func (r *HoldRepository) LiveCodes(ctx context.Context, now time.Time) (map[string]struct{}, error) {
	if _, err := exec(ctx, r.pool, `SELECT pg_advisory_xact_lock($1)`, codeMintLockID); err != nil {
		return nil, fmt.Errorf("acquire code mint lock: %w", err)
	}

	q := `SELECT h.code FROM holds h WHERE ` + liveHoldPredicate
	rows, err := query(ctx, r.pool, q, now)
	if err != nil {
		return nil, fmt.Errorf("live codes: %w", err)
	}
	defer rows.Close()

	codes := make(map[string]struct{})
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		codes[c] = struct{}{}
	}
	return codes, rows.Err()
}

func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, spot_id, driver_id, code, status, created_at, expires_at, verified_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := exec(ctx, r.pool, stmt,
		hold.ID,
		hold.SpotID,
		hold.DriverID,
		hold.Code,
		hold.Status,
		hold.CreatedAt,
		hold.ExpiresAt,
		hold.VerifiedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSpotUnavailable
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus, verifiedAt *time.Time) error {
	const stmt = `UPDATE holds SET status = $2, verified_at = COALESCE($3, verified_at) WHERE id = $1`

	tag, err := exec(ctx, r.pool, stmt, holdID, status, verifiedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update hold status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (r *HoldRepository) ListExpiredPendingHoldIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const q = `
SELECT id FROM holds
WHERE status = 'pending' AND expires_at <= $1
ORDER BY expires_at ASC
LIMIT $2`

	rows, err := query(ctx, r.pool, q, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan hold id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanHold(row pgx.Row) (domain.Hold, error) {
	var h domain.Hold
	var status string
	err := row.Scan(&h.ID, &h.SpotID, &h.DriverID, &h.Code, &status, &h.CreatedAt, &h.ExpiresAt, &h.VerifiedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("scan hold: %w", err)
	}
	h.Status = domain.HoldStatus(status)
	return h, nil
}
