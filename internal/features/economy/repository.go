package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/db/postgres"
)

// Repository works with the credit_accounts and credit_transactions tables.
// Statements run on the transaction carried by ctx when there is one.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const accountColumns = `user_id, balance, total_earned, total_spent, login_streak,
	longest_streak, last_daily_reward, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.UserID, &a.Balance, &a.TotalEarned, &a.TotalSpent, &a.LoginStreak,
		&a.LongestStreak, &a.LastDailyReward, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAccount inserts an empty account. Reports false if it already existed.
func (r *Repository) CreateAccount(ctx context.Context, userID string) (bool, error) {
	tag, err := postgres.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO credit_accounts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return false, fmt.Errorf("create account: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) GetAccount(ctx context.Context, userID string) (*Account, error) {
	a, err := scanAccount(postgres.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM credit_accounts WHERE user_id = $1`, userID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// GetAccountForUpdate locks the account row until the surrounding transaction ends.
func (r *Repository) GetAccountForUpdate(ctx context.Context, userID string) (*Account, error) {
	a, err := scanAccount(postgres.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM credit_accounts WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("lock account: %w", err)
	}
	return a, nil
}

// SaveBalance writes the balance counters of a locked account.
func (r *Repository) SaveBalance(ctx context.Context, a *Account) error {
	_, err := postgres.Conn(ctx, r.db).Exec(ctx, `
		UPDATE credit_accounts
		SET balance = $2, total_earned = $3, total_spent = $4, updated_at = NOW()
		WHERE user_id = $1
	`, a.UserID, a.Balance, a.TotalEarned, a.TotalSpent)
	if err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

// SaveStreak records a daily claim on a locked account.
func (r *Repository) SaveStreak(ctx context.Context, userID string, streak, longest int, day time.Time) error {
	_, err := postgres.Conn(ctx, r.db).Exec(ctx, `
		UPDATE credit_accounts
		SET login_streak = $2, longest_streak = $3, last_daily_reward = $4, updated_at = NOW()
		WHERE user_id = $1
	`, userID, streak, longest, day)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}

// InsertTransaction appends t to the ledger and fills ID and CreatedAt.
func (r *Repository) InsertTransaction(ctx context.Context, t *Transaction) error {
	err := postgres.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO credit_transactions (user_id, amount, kind, source, description, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, t.UserID, t.Amount, t.Kind, t.Source, t.Description, t.BalanceAfter).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListTransactions returns a page of the user's ledger, newest first.
func (r *Repository) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*Transaction, error) {
	rows, err := postgres.Conn(ctx, r.db).Query(ctx, `
		SELECT id, user_id, amount, kind, source, description, balance_after, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*Transaction, 0, limit)
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Amount, &t.Kind, &t.Source,
			&t.Description, &t.BalanceAfter, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}
