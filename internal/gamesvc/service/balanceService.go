package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/store"
	"github.com/avvvet/draught-services/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const TransactionsPerPage = 20

var (
	MinDeposit    = decimal.NewFromInt(100)
	MinWithdrawal = decimal.NewFromInt(500)
)

type BalanceService struct {
	store    store.Store
	provider payment.Provider
	now      func() time.Time
}

// NewBalanceService creates the wallet service. provider may be nil when deposits are not served.
func NewBalanceService(st store.Store, provider payment.Provider) *BalanceService {
	return &BalanceService{store: st, provider: provider, now: time.Now}
}

// GetUserBalance returns the wallet balance of the given user.
func (s *BalanceService) GetUserBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	balance, err := s.store.Wallets().Balance(ctx, userID)
	return balance, wrapInternal(err)
}

// Transactions pages through a user's ledger entries, newest first. Pages start at 1.
func (s *BalanceService) Transactions(ctx context.Context, userID int64, page int) ([]*models.Transaction, error) {
	if page < 1 {
		page = 1
	}
	txs, err := s.store.Wallets().ListTransactions(ctx, userID, TransactionsPerPage, (page-1)*TransactionsPerPage)
	return txs, wrapInternal(err)
}

// GameTransactions returns every ledger entry posted for a game.
func (s *BalanceService) GameTransactions(ctx context.Context, gameID int64) ([]*models.Transaction, error) {
	txs, err := s.store.Wallets().ListGameTransactions(ctx, gameID)
	return txs, wrapInternal(err)
}

// InitializeDeposit opens a checkout with the payment provider and records a pending deposit.
func (s *BalanceService) InitializeDeposit(ctx context.Context, userID int64, email string, amount decimal.Decimal) (*payment.Checkout, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no payment provider configured", models.ErrInternal)
	}
	if amount.LessThan(MinDeposit) || !amount.Equal(amount.Truncate(2)) {
		return nil, fmt.Errorf("%w: minimum deposit is %s", models.ErrValidation, MinDeposit.StringFixed(2))
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, wrapInternal(err)
	}
	if email == "" {
		email = user.Email
	}

	reference := uuid.New().String()
	checkout, err := s.provider.Initialize(ctx, payment.InitRequest{
		Email:     email,
		Amount:    amount,
		Reference: reference,
		Metadata:  map[string]any{"user_id": userID, "type": string(models.TxDeposit)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInternal, err)
	}

	err = s.store.Wallets().RecordTransaction(ctx, &models.Transaction{
		UserID:      &userID,
		Type:        models.TxDeposit,
		Amount:      amount,
		Status:      models.TxPending,
		Reference:   reference,
		Description: "Wallet deposit via Paystack",
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	log.WithFields(log.Fields{"user": userID, "reference": reference, "amount": amount.StringFixed(2)}).Info("deposit initialized")
	return checkout, nil
}

// ConfirmDeposit verifies a deposit with the provider and credits the wallet once.
// Confirming an already completed deposit returns it unchanged.
func (s *BalanceService) ConfirmDeposit(ctx context.Context, reference string) (*models.Transaction, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no payment provider configured", models.ErrInternal)
	}

	v, err := s.provider.Verify(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInternal, err)
	}
	if !v.Successful() {
		return nil, fmt.Errorf("%w: payment %s is %s", models.ErrInvalidState, reference, v.Status)
	}

	var deposit *models.Transaction
	err = s.store.InTx(ctx, func(tx store.Repos) error {
		t, err := tx.Wallets().GetTransactionByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		if t.Type != models.TxDeposit || t.UserID == nil {
			return fmt.Errorf("%w: %s is not a deposit", models.ErrValidation, reference)
		}
		if t.Status != models.TxPending {
			deposit = t
			return nil
		}
		if v.Amount.LessThan(t.Amount) {
			return fmt.Errorf("%w: paid %s, expected %s", models.ErrValidation, v.Amount.StringFixed(2), t.Amount.StringFixed(2))
		}

		if err := tx.Wallets().Credit(ctx, *t.UserID, t.Amount); err != nil {
			return err
		}
		now := s.now()
		if err := tx.Wallets().SetTransactionStatus(ctx, t.ID, models.TxCompleted, now); err != nil {
			return err
		}
		t.Status, t.CompletedAt = models.TxCompleted, &now
		deposit = t
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	log.WithFields(log.Fields{"reference": reference, "status": deposit.Status}).Info("deposit confirmed")
	return deposit, nil
}

// RequestWithdrawal debits the wallet and records a pending withdrawal with
// the account it is to be paid into.
func (s *BalanceService) RequestWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, account models.PayoutAccount) (*models.Withdrawal, error) {
	if amount.LessThan(MinWithdrawal) || !amount.Equal(amount.Truncate(2)) {
		return nil, fmt.Errorf("%w: minimum withdrawal is %s", models.ErrValidation, MinWithdrawal.StringFixed(2))
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	reference := "WDR-" + uuid.New().String()
	t := &models.Transaction{
		UserID:      &userID,
		Type:        models.TxWithdrawal,
		Amount:      amount,
		Status:      models.TxPending,
		Reference:   reference,
		Description: "Withdrawal request to " + account.AccountName,
	}
	w := &models.Withdrawal{
		Reference:     reference,
		UserID:        userID,
		Amount:        amount,
		PayoutAccount: account,
	}
	err := s.store.InTx(ctx, func(tx store.Repos) error {
		if err := tx.Wallets().Debit(ctx, userID, amount); err != nil {
			return err
		}
		if err := tx.Wallets().RecordTransaction(ctx, t); err != nil {
			return err
		}
		return tx.Wallets().RecordWithdrawal(ctx, w)
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	log.WithFields(log.Fields{"user": userID, "reference": reference, "amount": amount.StringFixed(2), "bank": account.BankCode}).Info("withdrawal requested")
	return w, nil
}

// Withdrawal returns the payout details of one of userID's withdrawals.
func (s *BalanceService) Withdrawal(ctx context.Context, userID int64, reference string) (*models.Withdrawal, error) {
	w, err := s.store.Wallets().GetWithdrawal(ctx, reference)
	if err != nil {
		return nil, wrapInternal(err)
	}
	if w.UserID != userID {
		return nil, fmt.Errorf("withdrawal %s: %w", reference, models.ErrNotFound)
	}
	return w, nil
}

// ListBanks returns the banks a withdrawal can be paid into.
func (s *BalanceService) ListBanks(ctx context.Context) ([]payment.Bank, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no payment provider configured", models.ErrInternal)
	}
	banks, err := s.provider.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInternal, err)
	}
	return banks, nil
}

// CompleteWithdrawal marks a paid-out withdrawal as completed.
func (s *BalanceService) CompleteWithdrawal(ctx context.Context, reference string) error {
	return s.settleWithdrawal(ctx, reference, models.TxCompleted)
}

// FailWithdrawal marks a withdrawal as failed and returns the funds to the wallet.
func (s *BalanceService) FailWithdrawal(ctx context.Context, reference string) error {
	return s.settleWithdrawal(ctx, reference, models.TxFailed)
}

func (s *BalanceService) settleWithdrawal(ctx context.Context, reference string, status models.TransactionStatus) error {
	err := s.store.InTx(ctx, func(tx store.Repos) error {
		t, err := tx.Wallets().GetTransactionByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		if t.Type != models.TxWithdrawal || t.UserID == nil {
			return fmt.Errorf("%w: %s is not a withdrawal", models.ErrValidation, reference)
		}
		if status == models.TxFailed {
			if err := tx.Wallets().Credit(ctx, *t.UserID, t.Amount); err != nil {
				return err
			}
		}
		return tx.Wallets().SetTransactionStatus(ctx, t.ID, status, s.now())
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidState) {
			log.Warnf("withdrawal %s already settled", reference)
		}
		return wrapInternal(err)
	}

	log.WithFields(log.Fields{"reference": reference, "status": status}).Info("withdrawal settled")
	return nil
}
