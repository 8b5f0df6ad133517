package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceStore is the Postgres wallet ledger: users.wallet_balance plus the transactions log.
type BalanceStore struct {
	db DBTX
}

func NewBalanceStore(db DBTX) *BalanceStore {
	return &BalanceStore{db: db}
}

func (c *BalanceStore) Debit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: debit amount must be positive", models.ErrValidation)
	}

	tag, err := c.db.Exec(ctx, `
		UPDATE users
		SET wallet_balance = wallet_balance - $2, updated_at = now()
		WHERE user_id = $1 AND wallet_balance >= $2`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit user %d: %w", userID, translate(err))
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := c.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check user %d: %w", userID, translate(err))
	}
	if !exists {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	return fmt.Errorf("user %d cannot cover %s: %w", userID, amount.StringFixed(2), models.ErrInsufficientFunds)
}

func (c *BalanceStore) Credit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: credit amount must be positive", models.ErrValidation)
	}

	tag, err := c.db.Exec(ctx, `
		UPDATE users
		SET wallet_balance = wallet_balance + $2, updated_at = now()
		WHERE user_id = $1`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit user %d: %w", userID, translate(err))
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	return nil
}

func (c *BalanceStore) RecordTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			user_id, game_id, type, amount, status, reference, description, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := c.db.QueryRow(ctx, query,
		t.UserID,
		t.GameID,
		string(t.Type),
		t.Amount,
		string(t.Status),
		nullString(t.Reference),
		t.Description,
		t.CompletedAt,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("reference %s already recorded: %w", t.Reference, models.ErrConcurrencyConflict)
		}
		return fmt.Errorf("failed to record %s transaction: %w", t.Type, translate(err))
	}
	return nil
}

func (c *BalanceStore) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := c.db.QueryRow(ctx, `SELECT wallet_balance FROM users WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
		}
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", translate(err))
	}
	return balance, nil
}

const transactionColumns = `
	id, user_id, game_id, type, amount, status, reference, description, created_at, completed_at`

func (c *BalanceStore) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*models.Transaction, error) {
	return c.list(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
}

func (c *BalanceStore) ListGameTransactions(ctx context.Context, gameID int64) ([]*models.Transaction, error) {
	return c.list(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE game_id = $1
		ORDER BY id`, gameID)
}

func (c *BalanceStore) GetTransactionByReferenceForUpdate(ctx context.Context, ref string) (*models.Transaction, error) {
	t, err := scanTransaction(c.db.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE reference = $1
		FOR UPDATE`, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", ref, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", translate(err))
	}
	return t, nil
}

func (c *BalanceStore) SetTransactionStatus(ctx context.Context, id int64, status models.TransactionStatus, at time.Time) error {
	tag, err := c.db.Exec(ctx, `
		UPDATE transactions
		SET status = $2, completed_at = $3
		WHERE id = $1 AND status = 'pending'`, id, string(status), at)
	if err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", id, translate(err))
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("transaction %d is not pending: %w", id, models.ErrInvalidState)
	}
	return nil
}

func (c *BalanceStore) RecordWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (
			reference, user_id, amount, account_number, bank_code, account_name, recipient_code, transfer_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := c.db.QueryRow(ctx, query,
		w.Reference,
		w.UserID,
		w.Amount,
		w.AccountNumber,
		w.BankCode,
		w.AccountName,
		nullString(w.RecipientCode),
		nullString(w.TransferCode),
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("withdrawal %s already recorded: %w", w.Reference, models.ErrConcurrencyConflict)
		}
		return fmt.Errorf("failed to record withdrawal %s: %w", w.Reference, translate(err))
	}
	return nil
}

func (c *BalanceStore) GetWithdrawal(ctx context.Context, ref string) (*models.Withdrawal, error) {
	var (
		w                 models.Withdrawal
		recipient, transf *string
	)
	err := c.db.QueryRow(ctx, `
		SELECT id, reference, user_id, amount, account_number, bank_code, account_name,
			recipient_code, transfer_code, created_at
		FROM withdrawals
		WHERE reference = $1`, ref).Scan(
		&w.ID,
		&w.Reference,
		&w.UserID,
		&w.Amount,
		&w.AccountNumber,
		&w.BankCode,
		&w.AccountName,
		&recipient,
		&transf,
		&w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("withdrawal %s: %w", ref, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get withdrawal: %w", translate(err))
	}
	if recipient != nil {
		w.RecipientCode = *recipient
	}
	if transf != nil {
		w.TransferCode = *transf
	}
	return &w, nil
}

func (c *BalanceStore) list(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := c.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", translate(err))
	}
	defer rows.Close()

	txs := []*models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return txs, nil
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	var (
		t            models.Transaction
		ttype, state string
		ref          *string
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.GameID,
		&ttype,
		&t.Amount,
		&state,
		&ref,
		&t.Description,
		&t.CreatedAt,
		&t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Type = models.TransactionType(ttype)
	t.Status = models.TransactionStatus(state)
	if ref != nil {
		t.Reference = *ref
	}
	return &t, nil
}
