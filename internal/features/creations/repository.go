package creations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/db/postgres"
)

// Repository works with the creations table. Every query filters by owner,
// so a foreign id reads as missing.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const creationColumns = `id, user_id, kind, name, summary, fields, image_url, tags, created_at, updated_at`

func scanCreation(row interface{ Scan(...any) error }) (*Creation, error) {
	var c Creation
	if err := row.Scan(
		&c.ID, &c.UserID, &c.Kind, &c.Name, &c.Summary,
		&c.Fields, &c.ImageURL, &c.Tags, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if c.Fields == nil {
		c.Fields = map[string]string{}
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, c *Creation) error {
	err := postgres.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO creations (user_id, kind, name, summary, fields, image_url, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, c.UserID, c.Kind, c.Name, c.Summary, c.Fields, c.ImageURL, c.Tags).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create %s: %w", c.Kind, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, userID string, kind common.Kind, id int64) (*Creation, error) {
	c, err := scanCreation(postgres.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+creationColumns+` FROM creations WHERE id = $1 AND user_id = $2 AND kind = $3`,
		id, userID, kind))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return c, nil
}

// List returns a page of the user's creations of kind, most recently updated first.
func (r *Repository) List(ctx context.Context, userID string, kind common.Kind, limit, offset int) ([]*Creation, error) {
	rows, err := postgres.Conn(ctx, r.db).Query(ctx, `
		SELECT `+creationColumns+`
		FROM creations
		WHERE user_id = $1 AND kind = $2
		ORDER BY updated_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, userID, kind, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Plural(), err)
	}
	defer rows.Close()

	out := make([]*Creation, 0, limit)
	for rows.Next() {
		c, err := scanCreation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, c *Creation) error {
	err := postgres.Conn(ctx, r.db).QueryRow(ctx, `
		UPDATE creations
		SET name = $4, summary = $5, fields = $6, image_url = $7, tags = $8, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND kind = $3
		RETURNING updated_at
	`, c.ID, c.UserID, c.Kind, c.Name, c.Summary, c.Fields, c.ImageURL, c.Tags).Scan(&c.UpdatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return common.ErrNotFound
		}
		return fmt.Errorf("update %s %d: %w", c.Kind, c.ID, err)
	}
	return nil
}

// Delete removes the creation. Its gallery publication goes with it (cascade).
func (r *Repository) Delete(ctx context.Context, userID string, kind common.Kind, id int64) error {
	tag, err := postgres.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM creations WHERE id = $1 AND user_id = $2 AND kind = $3`, id, userID, kind)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}
