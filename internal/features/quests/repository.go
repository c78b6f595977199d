package quests

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/db/postgres"
)

// Repository works with quest_templates and user_daily_quests.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const userQuestSelect = `
	SELECT q.id, q.user_id, q.quest_id, q.day, q.progress, q.is_completed, q.is_claimed,
	       q.completed_at, q.claimed_at,
	       t.name, t.description, t.icon, t.requirement, t.reward_credits, t.quest_type
	FROM user_daily_quests q
	JOIN quest_templates t ON t.id = q.quest_id
`

func scanUserQuest(row pgx.Row) (*UserQuest, error) {
	var q UserQuest
	err := row.Scan(
		&q.ID, &q.UserID, &q.QuestID, &q.Day, &q.Progress, &q.IsCompleted, &q.IsClaimed,
		&q.CompletedAt, &q.ClaimedAt,
		&q.Name, &q.Description, &q.Icon, &q.Requirement, &q.RewardCredits, &q.QuestType,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func collectUserQuests(rows pgx.Rows) ([]*UserQuest, error) {
	defer rows.Close()
	var out []*UserQuest
	for rows.Next() {
		q, err := scanUserQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quest: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// AssignDaily creates the missing rows for every active template. Existing
// rows are left alone, so repeated calls are harmless.
func (r *Repository) AssignDaily(ctx context.Context, userID string, day time.Time) (int64, error) {
	tag, err := postgres.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO user_daily_quests (user_id, quest_id, day)
		SELECT $1, id, $2 FROM quest_templates WHERE is_active
		ON CONFLICT (user_id, quest_id, day) DO NOTHING
	`, userID, day)
	if err != nil {
		return 0, fmt.Errorf("assign daily quests: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) ListForDay(ctx context.Context, userID string, day time.Time) ([]*UserQuest, error) {
	rows, err := postgres.Conn(ctx, r.db).Query(ctx, userQuestSelect+`
		WHERE q.user_id = $1 AND q.day = $2
		ORDER BY t.sort_order, t.id
	`, userID, day)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	return collectUserQuests(rows)
}

// OpenByTypeForUpdate locks the day's not yet completed quests of one type.
func (r *Repository) OpenByTypeForUpdate(ctx context.Context, userID string, day time.Time, questType string) ([]*UserQuest, error) {
	rows, err := postgres.Conn(ctx, r.db).Query(ctx, userQuestSelect+`
		WHERE q.user_id = $1 AND q.day = $2 AND t.quest_type = $3 AND NOT q.is_completed
		ORDER BY q.id
		FOR UPDATE OF q
	`, userID, day, questType)
	if err != nil {
		return nil, fmt.Errorf("lock open quests: %w", err)
	}
	return collectUserQuests(rows)
}

func (r *Repository) SaveProgress(ctx context.Context, q *UserQuest) error {
	_, err := postgres.Conn(ctx, r.db).Exec(ctx, `
		UPDATE user_daily_quests
		SET progress = $2, is_completed = $3, completed_at = $4
		WHERE id = $1
	`, q.ID, q.Progress, q.IsCompleted, q.CompletedAt)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// GetForUpdate locks one of the user's quest rows. Rows of other users are not found.
func (r *Repository) GetForUpdate(ctx context.Context, userID string, id int64) (*UserQuest, error) {
	q, err := scanUserQuest(postgres.Conn(ctx, r.db).QueryRow(ctx, userQuestSelect+`
		WHERE q.id = $1 AND q.user_id = $2
		FOR UPDATE OF q
	`, id, userID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("lock quest: %w", err)
	}
	return q, nil
}

func (r *Repository) MarkClaimed(ctx context.Context, id int64, at time.Time) error {
	_, err := postgres.Conn(ctx, r.db).Exec(ctx, `
		UPDATE user_daily_quests SET is_claimed = TRUE, claimed_at = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark claimed: %w", err)
	}
	return nil
}

// PurgeBefore deletes quest rows for days before day.
func (r *Repository) PurgeBefore(ctx context.Context, day time.Time) (int64, error) {
	tag, err := postgres.Conn(ctx, r.db).Exec(ctx, `DELETE FROM user_daily_quests WHERE day < $1`, day)
	if err != nil {
		return 0, fmt.Errorf("purge quests: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Catalog ---

func (r *Repository) ListTemplates(ctx context.Context, activeOnly bool) ([]*Template, error) {
	rows, err := postgres.Conn(ctx, r.db).Query(ctx, `
		SELECT id, name, description, icon, requirement, reward_credits, quest_type, is_active, sort_order
		FROM quest_templates
		WHERE is_active OR NOT $1
		ORDER BY sort_order, id
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []*Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Icon, &t.Requirement,
			&t.RewardCredits, &t.QuestType, &t.IsActive, &t.SortOrder); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// UpsertTemplate inserts or replaces a template. With overwrite false an
// existing row is kept untouched (used for seeding).
func (r *Repository) UpsertTemplate(ctx context.Context, t *Template, overwrite bool) error {
	conflict := `DO NOTHING`
	if overwrite {
		conflict = `DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
			icon = EXCLUDED.icon, requirement = EXCLUDED.requirement,
			reward_credits = EXCLUDED.reward_credits, quest_type = EXCLUDED.quest_type,
			is_active = EXCLUDED.is_active, sort_order = EXCLUDED.sort_order`
	}
	_, err := postgres.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO quest_templates (id, name, description, icon, requirement, reward_credits, quest_type, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) `+conflict,
		t.ID, t.Name, t.Description, t.Icon, t.Requirement, t.RewardCredits, t.QuestType, t.IsActive, t.SortOrder)
	if err != nil {
		return fmt.Errorf("upsert template %s: %w", t.ID, err)
	}
	return nil
}

func (r *Repository) SetTemplateActive(ctx context.Context, id string, active bool) error {
	tag, err := postgres.Conn(ctx, r.db).Exec(ctx,
		`UPDATE quest_templates SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}
