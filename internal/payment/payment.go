// Package payment talks to the external payment gateway used for wallet deposits and payouts.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type InitRequest struct {
	Email       string
	Amount      decimal.Decimal
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

type Checkout struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

type Verification struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
}

func (v *Verification) Successful() bool {
	return v.Status == "success"
}

// Bank is a payout destination supported by the provider.
type Bank struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Slug     string `json:"slug,omitempty"`
	Currency string `json:"currency,omitempty"`
	Type     string `json:"type,omitempty"`
}

type Provider interface {
	Initialize(ctx context.Context, req InitRequest) (*Checkout, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
	// ListBanks returns the active banks withdrawals can be paid into.
	ListBanks(ctx context.Context) ([]Bank, error)
}
