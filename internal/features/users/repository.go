package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/db/postgres"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert inserts the user or refreshes the profile fields and last_seen_at.
// Empty claims never overwrite stored values. Reports whether the row is new.
func (r *Repository) Upsert(ctx context.Context, u *User) (bool, error) {
	var created bool
	err := postgres.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO users (id, email, display_name, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email        = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
		    display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), users.display_name),
		    avatar_url   = COALESCE(NULLIF(EXCLUDED.avatar_url, ''), users.avatar_url),
		    last_seen_at = NOW()
		RETURNING created_at, last_seen_at, (xmax = 0)
	`, u.ID, u.Email, u.DisplayName, u.AvatarURL).Scan(&u.CreatedAt, &u.LastSeenAt, &created)
	if err != nil {
		return false, fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return created, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*User, error) {
	var u User
	err := postgres.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, email, display_name, avatar_url, created_at, last_seen_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.CreatedAt, &u.LastSeenAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// Exists is used by the admin surface before granting credits.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := postgres.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user %s: %w", id, err)
	}
	return exists, nil
}
