package gallery

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

const itemColumns = `id, user_id, item_type, item_id, title, description, image_url,
	like_count, view_count, created_at`

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var it Item
	if err := row.Scan(
		&it.ID, &it.UserID, &it.ItemType, &it.ItemID, &it.Title, &it.Description,
		&it.ImageURL, &it.LikeCount, &it.ViewCount, &it.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &it, nil
}

// Create inserts a publication. A second publication of the same creation
// fails with ErrAlreadyPublished.
func (r *Repository) Create(ctx context.Context, it *Item) error {
	err := postgres.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO gallery_items (user_id, item_type, item_id, title, description, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, it.UserID, it.ItemType, it.ItemID, it.Title, it.Description, it.ImageURL).Scan(&it.ID, &it.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return common.ErrAlreadyPublished
		}
		return fmt.Errorf("publish %s %d: %w", it.ItemType, it.ItemID, err)
	}
	return nil
}

func (r *Repository) queryItems(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := postgres.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query gallery: %w", err)
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gallery item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Feed lists every publication newest first, optionally of one kind ("" for all).
func (r *Repository) Feed(ctx context.Context, kind common.Kind, limit, offset int) ([]*Item, error) {
	return r.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM gallery_items
		WHERE ($1 = '' OR item_type = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, string(kind), limit, offset)
}

func (r *Repository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Item, error) {
	return r.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM gallery_items
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
}

// LikedBy returns which of ids userID has liked.
func (r *Repository) LikedBy(ctx context.Context, userID string, ids []int64) (map[int64]bool, error) {
	liked := make(map[int64]bool)
	if userID == "" || len(ids) == 0 {
		return liked, nil
	}
	rows, err := postgres.Conn(ctx, r.db).Query(ctx,
		`SELECT item_id FROM gallery_likes WHERE user_id = $1 AND item_id = ANY($2)`, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("liked by %s: %w", userID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		liked[id] = true
	}
	return liked, rows.Err()
}

// Delete removes the owner's publication; likes cascade.
func (r *Repository) Delete(ctx context.Context, userID string, id int64) error {
	tag, err := postgres.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM gallery_items WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete gallery item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// LockItem locks the publication row and returns its like count.
func (r *Repository) LockItem(ctx context.Context, id int64) (int64, error) {
	var likes int64
	err := postgres.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT like_count FROM gallery_items WHERE id = $1 FOR UPDATE`, id).Scan(&likes)
	if err != nil {
		if postgres.IsNoRows(err) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("lock gallery item %d: %w", id, err)
	}
	return likes, nil
}

// InsertLike reports false when the like already existed.
func (r *Repository) InsertLike(ctx context.Context, itemID int64, userID string) (bool, error) {
	tag, err := postgres.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO gallery_likes (item_id, user_id) VALUES ($1, $2)
		ON CONFLICT (item_id, user_id) DO NOTHING
	`, itemID, userID)
	if err != nil {
		return false, fmt.Errorf("insert like: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteLike reports false when there was nothing to delete.
func (r *Repository) DeleteLike(ctx context.Context, itemID int64, userID string) (bool, error) {
	tag, err := postgres.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM gallery_likes WHERE item_id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) SetLikeCount(ctx context.Context, id, count int64) error {
	_, err := postgres.Conn(ctx, r.db).Exec(ctx,
		`UPDATE gallery_items SET like_count = $2 WHERE id = $1`, id, count)
	if err != nil {
		return fmt.Errorf("set like count: %w", err)
	}
	return nil
}

// AddView increments the view counter and returns the new value.
func (r *Repository) AddView(ctx context.Context, id int64) (int64, error) {
	var views int64
	err := postgres.Conn(ctx, r.db).QueryRow(ctx,
		`UPDATE gallery_items SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`, id).Scan(&views)
	if err != nil {
		if postgres.IsNoRows(err) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("add view: %w", err)
	}
	return views, nil
}
