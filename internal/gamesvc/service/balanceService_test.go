package service

import (
	"context"
	"errors"
	"testing"

	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/store/memstore"
	"github.com/avvvet/draught-services/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	initialized []payment.InitRequest
	paid        map[string]decimal.Decimal
	status      string
	banks       []payment.Bank
	err         error
}

func (f *fakeProvider) Initialize(ctx context.Context, req payment.InitRequest) (*payment.Checkout, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.initialized = append(f.initialized, req)
	return &payment.Checkout{
		Reference:        req.Reference,
		AuthorizationURL: "https://checkout.example/" + req.Reference,
		AccessCode:       "code",
	}, nil
}

func (f *fakeProvider) Verify(ctx context.Context, reference string) (*payment.Verification, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Verification{Reference: reference, Status: f.status, Amount: f.paid[reference]}, nil
}

func (f *fakeProvider) ListBanks(ctx context.Context) ([]payment.Bank, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.banks, nil
}

func newBalanceService(t *testing.T) (*BalanceService, *memstore.Store, *fakeProvider) {
	t.Helper()
	st := memstore.New()
	st.AddUser(creator, "creator", dec("1000"))
	provider := &fakeProvider{status: "success", paid: map[string]decimal.Decimal{}}
	return NewBalanceService(st, provider), st, provider
}

func TestDepositFlow(t *testing.T) {
	svc, st, provider := newBalanceService(t)
	ctx := context.Background()

	_, err := svc.InitializeDeposit(ctx, creator, "player@example.com", dec("99.99"))
	assert.ErrorIs(t, err, models.ErrValidation)

	checkout, err := svc.InitializeDeposit(ctx, creator, "player@example.com", dec("250"))
	require.NoError(t, err)
	require.Len(t, provider.initialized, 1)
	assert.Equal(t, checkout.Reference, provider.initialized[0].Reference)
	assertAmount(t, "1000", balanceOf(t, st, creator))

	provider.paid[checkout.Reference] = dec("250")
	deposit, err := svc.ConfirmDeposit(ctx, checkout.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.TxCompleted, deposit.Status)
	assertAmount(t, "1250", balanceOf(t, st, creator))

	// webhooks are retried; the second confirmation must not credit again
	again, err := svc.ConfirmDeposit(ctx, checkout.Reference)
	require.NoError(t, err)
	assert.Equal(t, deposit.ID, again.ID)
	assertAmount(t, "1250", balanceOf(t, st, creator))

	txs, err := svc.Transactions(ctx, creator, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TxDeposit, txs[0].Type)
}

func TestConfirmDepositRejectsUnpaid(t *testing.T) {
	svc, st, provider := newBalanceService(t)
	ctx := context.Background()

	checkout, err := svc.InitializeDeposit(ctx, creator, "", dec("300"))
	require.NoError(t, err)

	provider.status = "abandoned"
	_, err = svc.ConfirmDeposit(ctx, checkout.Reference)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	provider.status = "success"
	provider.paid[checkout.Reference] = dec("200")
	_, err = svc.ConfirmDeposit(ctx, checkout.Reference)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.ConfirmDeposit(ctx, "unknown")
	assert.ErrorIs(t, err, models.ErrNotFound)

	assertAmount(t, "1000", balanceOf(t, st, creator))
}

func TestDepositProviderFailure(t *testing.T) {
	svc, _, provider := newBalanceService(t)
	provider.err = errors.New("gateway timeout")

	_, err := svc.InitializeDeposit(context.Background(), creator, "a@b.c", dec("100"))
	assert.ErrorIs(t, err, models.ErrInternal)

	noProvider := NewBalanceService(memstore.New(), nil)
	_, err = noProvider.InitializeDeposit(context.Background(), creator, "a@b.c", dec("100"))
	assert.ErrorIs(t, err, models.ErrInternal)
}

func TestWithdrawalFlow(t *testing.T) {
	svc, st, _ := newBalanceService(t)
	ctx := context.Background()
	acct := models.PayoutAccount{AccountNumber: "0123456789", BankCode: "044", AccountName: "Creator One"}

	_, err := svc.RequestWithdrawal(ctx, creator, dec("499"), acct)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.RequestWithdrawal(ctx, creator, dec("1500"), acct)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	for _, bad := range []models.PayoutAccount{
		{BankCode: "044", AccountName: "Creator One"},
		{AccountNumber: "0123456789", AccountName: "Creator One"},
		{AccountNumber: "0123456789", BankCode: "044", AccountName: " "},
	} {
		_, err = svc.RequestWithdrawal(ctx, creator, dec("500"), bad)
		assert.ErrorIs(t, err, models.ErrValidation)
	}
	assertAmount(t, "1000", balanceOf(t, st, creator))

	paid, err := svc.RequestWithdrawal(ctx, creator, dec("500"), acct)
	require.NoError(t, err)
	assertAmount(t, "500", balanceOf(t, st, creator))

	stored, err := st.Wallets().GetWithdrawal(ctx, paid.Reference)
	require.NoError(t, err)
	assert.Equal(t, acct, stored.PayoutAccount)
	assert.Equal(t, creator, stored.UserID)
	assertAmount(t, "500", stored.Amount)

	entry, err := st.Wallets().GetTransactionByReferenceForUpdate(ctx, paid.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.TxWithdrawal, entry.Type)
	assert.Equal(t, models.TxPending, entry.Status)
	assert.Equal(t, "Withdrawal request to Creator One", entry.Description)

	require.NoError(t, svc.CompleteWithdrawal(ctx, paid.Reference))
	assertAmount(t, "500", balanceOf(t, st, creator))

	failed, err := svc.RequestWithdrawal(ctx, creator, dec("500"), acct)
	require.NoError(t, err)
	assertAmount(t, "0", balanceOf(t, st, creator))
	require.NoError(t, svc.FailWithdrawal(ctx, failed.Reference))
	assertAmount(t, "500", balanceOf(t, st, creator))

	// settled withdrawals cannot change again
	assert.ErrorIs(t, svc.FailWithdrawal(ctx, paid.Reference), models.ErrInvalidState)
	assert.ErrorIs(t, svc.FailWithdrawal(ctx, failed.Reference), models.ErrInvalidState)
	assertAmount(t, "500", balanceOf(t, st, creator))
}

func TestListBanks(t *testing.T) {
	svc, _, provider := newBalanceService(t)
	ctx := context.Background()
	provider.banks = []payment.Bank{{Name: "Access Bank", Code: "044"}}

	banks, err := svc.ListBanks(ctx)
	require.NoError(t, err)
	assert.Equal(t, provider.banks, banks)

	provider.err = errors.New("gateway timeout")
	_, err = svc.ListBanks(ctx)
	assert.ErrorIs(t, err, models.ErrInternal)

	_, err = NewBalanceService(memstore.New(), nil).ListBanks(ctx)
	assert.ErrorIs(t, err, models.ErrInternal)
}

func TestGetUserBalance(t *testing.T) {
	svc, _, _ := newBalanceService(t)

	b, err := svc.GetUserBalance(context.Background(), creator)
	require.NoError(t, err)
	assertAmount(t, "1000", b)

	_, err = svc.GetUserBalance(context.Background(), 77)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
