package service

import (
	"context"
	"testing"

	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateUser(t *testing.T) {
	st := memstore.New()
	svc := NewUserService(st.Users())
	ctx := context.Background()

	_, err := svc.GetOrCreateUser(ctx, models.User{Name: "nobody"})
	assert.ErrorIs(t, err, models.ErrValidation)

	u, err := svc.GetOrCreateUser(ctx, models.User{UserId: 42, Name: "Abebe"})
	require.NoError(t, err)
	assert.Equal(t, "Abebe", u.Name)
	assert.Equal(t, models.UserActive, u.Status)
	assert.True(t, u.WalletBalance.IsZero())

	again, err := svc.GetOrCreateUser(ctx, models.User{UserId: 42, Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Abebe", again.Name)
}

func TestLeaderboards(t *testing.T) {
	svc, st, _ := newTestService(t)
	users := NewUserService(st.Users())
	ctx := context.Background()

	g := startGame(t, svc, "100")
	_, err := svc.ResignGame(ctx, g.ID, opponent)
	require.NoError(t, err)

	players, err := users.TopPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, creator, players[0].UserId)
	assert.Equal(t, 1, players[0].TotalWins)

	earners, err := users.TopEarners(ctx)
	require.NoError(t, err)
	require.Len(t, earners, 2)
	assert.Equal(t, creator, earners[0].UserId)
	assertAmount(t, "50", earners[0].TotalEarnings)
}
