package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lianamurzabaeva86-hue/forwarded/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, telegram_id, COALESCE(username, ''), trial_start, subscription_end, is_active, awaiting_payment, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var subEnd sql.NullTime
	var active, awaiting int
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.TrialStart, &subEnd, &active, &awaiting, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if subEnd.Valid {
		t := subEnd.Time
		u.SubscriptionEnd = &t
	}
	u.IsActive = active != 0
	u.AwaitingPayment = awaiting != 0
	return &u, nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	const query = `
INSERT INTO users (telegram_id, username, trial_start, is_active, awaiting_payment)
VALUES (?, NULLIF(?, ''), ?, 1, 0)`
	res, err := r.db.ExecContext(ctx, query, user.TelegramID, user.Username, user.TrialStart)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	user.ID = id
	user.IsActive = true
	user.AwaitingPayment = false
	return user, nil
}

// UpdateUsername resyncs the display handle. Intentionally touches nothing
// else: trial and subscription fields are owned by their own operations.
func (r *UserRepository) UpdateUsername(ctx context.Context, telegramID int64, username string) error {
	const query = `UPDATE users SET username = NULLIF(?, ''), updated_at = NOW() WHERE telegram_id = ?`
	if _, err := r.db.ExecContext(ctx, query, username, telegramID); err != nil {
		return fmt.Errorf("update username: %w", err)
	}
	return nil
}

func (r *UserRepository) SetAwaitingPayment(ctx context.Context, telegramID int64, awaiting bool) error {
	value := 0
	if awaiting {
		value = 1
	}
	const query = `UPDATE users SET awaiting_payment = ?, updated_at = NOW() WHERE telegram_id = ?`
	if _, err := r.db.ExecContext(ctx, query, value, telegramID); err != nil {
		return fmt.Errorf("set awaiting payment: %w", err)
	}
	return nil
}

// Grant opens a subscription window ending at the given time. Also clears the
// awaiting-payment flag: the manual payment conversation is over.
func (r *UserRepository) Grant(ctx context.Context, telegramID int64, subscriptionEnd time.Time) error {
	const query = `
UPDATE users SET is_active = 1, subscription_end = ?, awaiting_payment = 0, updated_at = NOW()
WHERE telegram_id = ?`
	if _, err := r.db.ExecContext(ctx, query, subscriptionEnd, telegramID); err != nil {
		return fmt.Errorf("grant access: %w", err)
	}
	return nil
}

// Revoke deactivates the account and drops the subscription window. The
// awaiting_payment flag and trial_start are left as they are.
func (r *UserRepository) Revoke(ctx context.Context, telegramID int64) error {
	const query = `
UPDATE users SET is_active = 0, subscription_end = NULL, updated_at = NOW()
WHERE telegram_id = ?`
	if _, err := r.db.ExecContext(ctx, query, telegramID); err != nil {
		return fmt.Errorf("revoke access: %w", err)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *UserRepository) ListTelegramIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT telegram_id FROM users`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list telegram ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan telegram id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
