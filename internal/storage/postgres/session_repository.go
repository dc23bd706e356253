package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohdshadink/spotshare/internal/domain"
)

const sessionColumns = `s.id, s.hold_id, s.spot_id, s.driver_id, s.owner_id, s.payment_ref, s.status,
s.started_at, s.ended_at, s.duration_seconds, s.cost_cents, s.overstayed, s.overstay_alerts`

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *SessionRepository) GetSpotForUpdate(ctx context.Context, spotID string) (domain.Spot, error) {
	return getSpotForUpdate(ctx, r.pool, spotID)
}

func (r *SessionRepository) UpdateSpotState(ctx context.Context, spotID string, state domain.SpotState) error {
	return updateSpotState(ctx, r.pool, spotID, state)
}

func (r *SessionRepository) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	q := `SELECT ` + holdColumns + ` FROM holds h WHERE h.id = $1`
	return scanHold(queryRow(ctx, r.pool, q, holdID))
}

func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.id = $1`
	return scanSession(queryRow(ctx, r.pool, q, sessionID))
}

func (r *SessionRepository) GetSessionByHoldID(ctx context.Context, holdID string) (*domain.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.hold_id = $1`
	s, err := scanSession(queryRow(ctx, r.pool, q, holdID))
	if err != nil {
		if err == domain.ErrSessionNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) CreateSession(ctx context.Context, session domain.Session) error {
	const stmt = `
INSERT INTO sessions (id, hold_id, spot_id, driver_id, owner_id, payment_ref, status,
	started_at, ended_at, duration_seconds, cost_cents, overstayed, overstay_alerts)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := exec(ctx, r.pool, stmt,
		session.ID,
		session.HoldID,
		session.SpotID,
		session.DriverID,
		session.OwnerID,
		session.PaymentRef,
		session.Status,
		session.StartedAt,
		session.EndedAt,
		int64(session.Duration/time.Second),
		session.CostCents,
		session.Overstayed,
		session.OverstayAlerts,
	)
	if err != nil {
		// sessions.hold_id is unique: the second activation of a hold loses.
		if isUniqueViolation(err) {
			return domain.ErrAlreadyActivated
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) CloseSession(ctx context.Context, session domain.Session) error {
	const stmt = `
UPDATE sessions
SET status = $2, ended_at = $3, duration_seconds = $4, cost_cents = $5
WHERE id = $1 AND status = 'active'`

	tag, err := exec(ctx, r.pool, stmt,
		session.ID,
		session.Status,
		session.EndedAt,
		int64(session.Duration/time.Second),
		session.CostCents,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotActive
	}
	return nil
}

func (r *SessionRepository) SetSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	tag, err := exec(ctx, r.pool, `UPDATE sessions SET status = $2 WHERE id = $1`, sessionID, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// BumpOverstay flags the session and increments its alert counter in one
// statement guarded on the active status, so a session closed between the
// notifier's scan and this update cleanly loses the race.
func (r *SessionRepository) BumpOverstay(ctx context.Context, sessionID string) (int, error) {
	const stmt = `
UPDATE sessions
SET overstayed = TRUE, overstay_alerts = overstay_alerts + 1
WHERE id = $1 AND status = 'active'
RETURNING overstay_alerts`

	var count int
	err := queryRow(ctx, r.pool, stmt, sessionID).Scan(&count)
	if err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return 0, domain.ErrSessionNotActive
		}
		return 0, fmt.Errorf("bump overstay: %w", err)
	}
	return count, nil
}

func (r *SessionRepository) ListOverstayedActive(ctx context.Context) ([]domain.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.status = 'active' AND s.overstayed ORDER BY s.started_at ASC`

	rows, err := query(ctx, r.pool, q)
	if err != nil {
		return nil, fmt.Errorf("list overstayed: %w", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var s domain.Session
	var status string
	var durationSeconds int64
	err := row.Scan(
		&s.ID, &s.HoldID, &s.SpotID, &s.DriverID, &s.OwnerID, &s.PaymentRef, &status,
		&s.StartedAt, &s.EndedAt, &durationSeconds, &s.CostCents, &s.Overstayed, &s.OverstayAlerts,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Session{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("scan session: %w", err)
	}
	s.Status = domain.SessionStatus(status)
	s.Duration = time.Duration(durationSeconds) * time.Second
	return s, nil
}
