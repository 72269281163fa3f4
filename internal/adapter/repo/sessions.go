package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"wordcraft/internal/domain"
	"wordcraft/internal/infra"
	"wordcraft/internal/sqlinline"
)

// SessionRepositoryPG implements domain.SessionRepository backed by PostgreSQL.
type SessionRepositoryPG struct {
	db infra.SQLExecutor
}

// NewSessionRepository creates a new SessionRepositoryPG.
func NewSessionRepository(db infra.SQLExecutor) *SessionRepositoryPG {
	return &SessionRepositoryPG{db: db}
}

func (r *SessionRepositoryPG) Create(ctx context.Context, s *domain.AuthSession) error {
	_, err := r.db.Exec(ctx, sqlinline.QInsertSession, s.ID, s.UserID, s.Locale, s.Country, s.CreatedAt, s.ExpiresAt)
	return err
}

func (r *SessionRepositoryPG) GetByID(ctx context.Context, id string) (*domain.AuthSession, error) {
	s, err := scanSession(r.db.QueryRow(ctx, sqlinline.QSelectSessionByID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListActive returns unrevoked, unexpired sessions, newest first.
func (r *SessionRepositoryPG) ListActive(ctx context.Context, userID string, now time.Time) ([]domain.AuthSession, error) {
	rows, err := r.db.Query(ctx, sqlinline.QSelectActiveSessions, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.AuthSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Revoke marks one session revoked. Revoking twice is a no-op.
func (r *SessionRepositoryPG) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, sqlinline.QRevokeSession, id, at)
	return err
}

func (r *SessionRepositoryPG) RevokeAll(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.Exec(ctx, sqlinline.QRevokeUserSessions, userID, at)
	return err
}

func scanSession(row pgx.Row) (domain.AuthSession, error) {
	var s domain.AuthSession
	err := row.Scan(&s.ID, &s.UserID, &s.Locale, &s.Country, &s.CreatedAt, &s.ExpiresAt, &s.RevokedAt)
	return s, err
}

var _ domain.SessionRepository = (*SessionRepositoryPG)(nil)
