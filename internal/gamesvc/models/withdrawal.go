package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PayoutAccount is the bank account a withdrawal is paid into.
type PayoutAccount struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	AccountName   string `json:"account_name"`
}

func (a PayoutAccount) Validate() error {
	switch {
	case strings.TrimSpace(a.AccountNumber) == "":
		return fmt.Errorf("%w: account number is required", ErrValidation)
	case strings.TrimSpace(a.BankCode) == "":
		return fmt.Errorf("%w: bank code is required", ErrValidation)
	case strings.TrimSpace(a.AccountName) == "":
		return fmt.Errorf("%w: account name is required", ErrValidation)
	}
	return nil
}

// Withdrawal holds the payout details for a pending withdrawal ledger entry,
// keyed by the entry's reference. Its status is the ledger entry's status.
type Withdrawal struct {
	ID        int64           `json:"id"`
	Reference string          `json:"reference"`
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	PayoutAccount
	RecipientCode string    `json:"recipient_code,omitempty"`
	TransferCode  string    `json:"transfer_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
