package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/db/postgres"
)

// Repository works with admin_sessions and admin_login_attempts.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	err := postgres.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO admin_sessions (token_hash, ip, expires_at, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, created_at, last_activity
	`, s.TokenHash, s.IP, s.ExpiresAt).Scan(&s.ID, &s.CreatedAt, &s.LastActivity)
	if err != nil {
		return fmt.Errorf("create admin session: %w", err)
	}
	s.IsActive = true
	return nil
}

// GetActiveSession returns the live session for tokenHash, ErrNotFound otherwise.
func (r *Repository) GetActiveSession(ctx context.Context, tokenHash string, now time.Time) (*Session, error) {
	var s Session
	err := postgres.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, token_hash, ip, created_at, expires_at, last_activity, is_active
		FROM admin_sessions
		WHERE token_hash = $1 AND is_active = TRUE AND expires_at > $2
	`, tokenHash, now).Scan(&s.ID, &s.TokenHash, &s.IP, &s.CreatedAt, &s.ExpiresAt, &s.LastActivity, &s.IsActive)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("get admin session: %w", err)
	}
	return &s, nil
}

func (r *Repository) TouchSession(ctx context.Context, id int64) error {
	_, err := postgres.Conn(ctx, r.db).Exec(ctx,
		`UPDATE admin_sessions SET last_activity = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch admin session: %w", err)
	}
	return nil
}

func (r *Repository) DeactivateSession(ctx context.Context, tokenHash string) error {
	_, err := postgres.Conn(ctx, r.db).Exec(ctx,
		`UPDATE admin_sessions SET is_active = FALSE WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("deactivate admin session: %w", err)
	}
	return nil
}

// ExpireSessions deactivates every session past its expiry.
func (r *Repository) ExpireSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := postgres.Conn(ctx, r.db).Exec(ctx,
		`UPDATE admin_sessions SET is_active = FALSE WHERE is_active = TRUE AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire admin sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) LogAttempt(ctx context.Context, ip string, success bool) error {
	_, err := postgres.Conn(ctx, r.db).Exec(ctx,
		`INSERT INTO admin_login_attempts (ip, success) VALUES ($1, $2)`, ip, success)
	if err != nil {
		return fmt.Errorf("log admin login attempt: %w", err)
	}
	return nil
}

// RecentFailures counts failed logins from ip since the given time.
func (r *Repository) RecentFailures(ctx context.Context, ip string, since time.Time) (int, error) {
	var count int
	err := postgres.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE ip = $1 AND success = FALSE AND attempt_time >= $2
	`, ip, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count admin login failures: %w", err)
	}
	return count, nil
}
