package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInTxRollsBackOnError(t *testing.T) {
	s := New()
	s.AddUser(1, "a", decimal.NewFromInt(100))
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx store.Repos) error {
		require.NoError(t, tx.Wallets().Debit(ctx, 1, decimal.NewFromInt(40)))
		created, err := tx.Games().CreateGame(ctx, &models.Game{Code: "ABCDEF", CreatorID: 1, Status: models.GameWaiting})
		require.NoError(t, err)
		require.True(t, created)
		return boom
	})
	require.ErrorIs(t, err, boom)

	b, err := s.Wallets().Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, b.Equal(decimal.NewFromInt(100)))

	_, err = s.Games().GetGameByCode(ctx, "ABCDEF")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestInTxCommits(t *testing.T) {
	s := New()
	s.AddUser(1, "a", decimal.NewFromInt(100))
	ctx := context.Background()

	err := s.InTx(ctx, func(tx store.Repos) error {
		return tx.Wallets().Debit(ctx, 1, decimal.NewFromInt(40))
	})
	require.NoError(t, err)

	b, err := s.Wallets().Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, b.Equal(decimal.NewFromInt(60)))
}

func TestDebitFailsClosed(t *testing.T) {
	s := New()
	s.AddUser(1, "a", decimal.NewFromInt(10))
	ctx := context.Background()

	assert.ErrorIs(t, s.Wallets().Debit(ctx, 1, decimal.NewFromInt(11)), models.ErrInsufficientFunds)
	assert.ErrorIs(t, s.Wallets().Debit(ctx, 2, decimal.NewFromInt(1)), models.ErrNotFound)
	assert.ErrorIs(t, s.Wallets().Debit(ctx, 1, decimal.Zero), models.ErrValidation)
	require.NoError(t, s.Wallets().Debit(ctx, 1, decimal.NewFromInt(10)))

	b, _ := s.Wallets().Balance(ctx, 1)
	assert.True(t, b.IsZero())
}

func TestUpdateGameGuardsStatus(t *testing.T) {
	s := New()
	ctx := context.Background()

	g := &models.Game{Code: "ABCDEF", CreatorID: 1, Status: models.GameWaiting}
	created, err := s.Games().CreateGame(ctx, g)
	require.NoError(t, err)
	require.True(t, created)

	dup, err := s.Games().CreateGame(ctx, &models.Game{Code: "ABCDEF", CreatorID: 2})
	require.NoError(t, err)
	assert.False(t, dup)

	g.Status = models.GameCancelled
	require.NoError(t, s.Games().UpdateGame(ctx, g, models.GameWaiting))
	assert.ErrorIs(t, s.Games().UpdateGame(ctx, g, models.GameWaiting), models.ErrConcurrencyConflict)
}

func TestRecordWithdrawalNeedsLedgerEntry(t *testing.T) {
	s := New()
	s.AddUser(1, "a", decimal.NewFromInt(1000))
	ctx := context.Background()
	userID := int64(1)

	w := &models.Withdrawal{
		Reference:     "WDR-1",
		UserID:        userID,
		Amount:        decimal.NewFromInt(500),
		PayoutAccount: models.PayoutAccount{AccountNumber: "0123456789", BankCode: "044", AccountName: "A"},
	}
	assert.ErrorIs(t, s.Wallets().RecordWithdrawal(ctx, w), models.ErrNotFound)

	require.NoError(t, s.Wallets().RecordTransaction(ctx, &models.Transaction{
		UserID:    &userID,
		Type:      models.TxWithdrawal,
		Amount:    w.Amount,
		Status:    models.TxPending,
		Reference: "WDR-1",
	}))
	require.NoError(t, s.Wallets().RecordWithdrawal(ctx, w))
	assert.ErrorIs(t, s.Wallets().RecordWithdrawal(ctx, w), models.ErrConcurrencyConflict)

	got, err := s.Wallets().GetWithdrawal(ctx, "WDR-1")
	require.NoError(t, err)
	assert.Equal(t, "044", got.BankCode)
	_, err = s.Wallets().GetWithdrawal(ctx, "WDR-2")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
