package badges

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/db/postgres"
)

// Repository works with badges, user_badges, generation_stats and generation_sessions.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InsertSession(ctx context.Context, s *Session) error {
	err := postgres.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO generation_sessions (user_id, activity_type, seconds)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, s.UserID, s.ActivityType, s.Seconds).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// AddSeconds bumps the cumulative counter and returns the new totals.
func (r *Repository) AddSeconds(ctx context.Context, userID string, seconds int64) (*Stats, error) {
	st := Stats{UserID: userID}
	err := postgres.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO generation_stats (user_id, total_seconds, session_count, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET total_seconds = generation_stats.total_seconds + EXCLUDED.total_seconds,
		    session_count = generation_stats.session_count + 1,
		    updated_at = NOW()
		RETURNING total_seconds, session_count, updated_at
	`, userID, seconds).Scan(&st.TotalSeconds, &st.SessionCount, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("add seconds: %w", err)
	}
	return &st, nil
}

// GetStats returns zero stats for users who never generated anything.
func (r *Repository) GetStats(ctx context.Context, userID string) (*Stats, error) {
	st := Stats{UserID: userID}
	err := postgres.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT total_seconds, session_count, updated_at FROM generation_stats WHERE user_id = $1
	`, userID).Scan(&st.TotalSeconds, &st.SessionCount, &st.UpdatedAt)
	if err != nil && !postgres.IsNoRows(err) {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &st, nil
}

// ListBadges returns the catalog in ascending threshold order.
func (r *Repository) ListBadges(ctx context.Context) ([]*Badge, error) {
	rows, err := postgres.Conn(ctx, r.db).Query(ctx, `
		SELECT id, name, description, icon, threshold_seconds
		FROM badges ORDER BY threshold_seconds, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var out []*Badge
	for rows.Next() {
		var b Badge
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Icon, &b.ThresholdSeconds); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// AwardBadge inserts the badge if the user does not own it yet.
// Reports whether a row was inserted.
func (r *Repository) AwardBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	tag, err := postgres.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO user_badges (user_id, badge_id) VALUES ($1, $2)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`, userID, badgeID)
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) ListUserBadges(ctx context.Context, userID string) ([]*UserBadge, error) {
	rows, err := postgres.Conn(ctx, r.db).Query(ctx, `
		SELECT b.id, b.name, b.description, b.icon, b.threshold_seconds, ub.awarded_at
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY b.threshold_seconds, b.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user badges: %w", err)
	}
	defer rows.Close()

	var out []*UserBadge
	for rows.Next() {
		var ub UserBadge
		if err := rows.Scan(&ub.ID, &ub.Name, &ub.Description, &ub.Icon, &ub.ThresholdSeconds, &ub.AwardedAt); err != nil {
			return nil, fmt.Errorf("scan user badge: %w", err)
		}
		out = append(out, &ub)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertBadge(ctx context.Context, b *Badge, overwrite bool) error {
	conflict := `DO NOTHING`
	if overwrite {
		conflict = `DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
			icon = EXCLUDED.icon, threshold_seconds = EXCLUDED.threshold_seconds`
	}
	_, err := postgres.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO badges (id, name, description, icon, threshold_seconds)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) `+conflict,
		b.ID, b.Name, b.Description, b.Icon, b.ThresholdSeconds)
	if err != nil {
		return fmt.Errorf("upsert badge %s: %w", b.ID, err)
	}
	return nil
}

// DeleteBadge removes a catalog entry nobody owns yet.
func (r *Repository) DeleteBadge(ctx context.Context, id string) error {
	tag, err := postgres.Conn(ctx, r.db).Exec(ctx, `DELETE FROM badges WHERE id = $1`, id)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return common.Invalid("badge %s has already been awarded", id)
		}
		return fmt.Errorf("delete badge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}
