package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxBetPlaced  TransactionType = "bet_placed"
	TxBetWon     TransactionType = "bet_won"
	TxBetRefund  TransactionType = "bet_refund"
	TxCommission TransactionType = "commission"
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// Transaction is a wallet ledger entry. A commission entry has no user.
type Transaction struct {
	ID          int64             `json:"id"`
	UserID      *int64            `json:"user_id,omitempty"`
	GameID      *int64            `json:"game_id,omitempty"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      TransactionStatus `json:"status"`
	Reference   string            `json:"reference,omitempty"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}
