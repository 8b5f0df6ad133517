package broker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/avvvet/draught-services/internal/comm"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/service"
	"github.com/avvvet/draught-services/internal/gamesvc/store/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	st := memstore.New()
	st.AddUser(1, "creator", decimal.NewFromInt(500))
	st.AddUser(2, "opponent", decimal.NewFromInt(500))

	games := service.NewGameService(st, nil, service.GameConfig{
		MinBet:         decimal.NewFromInt(50),
		CommissionRate: decimal.RequireFromString("0.25"),
	})
	return NewBroker(nil, service.NewUserService(st.Users()), service.NewBalanceService(st, nil), games)
}

func request(t *testing.T, userID int64, msgType string, data string) *comm.WSMessage {
	t.Helper()
	return &comm.WSMessage{Type: msgType, Data: json.RawMessage(data), SocketId: "sock-1", UserId: userID}
}

func decodeGame(t *testing.T, resp *comm.WSMessage) *models.Game {
	t.Helper()
	var data comm.GameData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotNil(t, data.Game)
	return data.Game
}

func TestDispatchGameFlow(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	resp := b.dispatch(ctx, request(t, 1, "create-game", `{"bet_amount":"100"}`))
	require.Equal(t, "create-game-response", resp.Type, string(resp.Data))
	created := decodeGame(t, resp)
	assert.Equal(t, models.GameWaiting, created.Status)

	resp = b.dispatch(ctx, request(t, 2, "join-game", `{"game_code":"`+created.Code+`"}`))
	require.Equal(t, "join-game-response", resp.Type, string(resp.Data))
	joined := decodeGame(t, resp)
	assert.Equal(t, models.GameInProgress, joined.Status)

	move := `{"game_id":` + jsonInt(joined.ID) + `,"from":{"row":5,"col":0},"to":{"row":4,"col":1},"captured":[]}`
	resp = b.dispatch(ctx, request(t, 1, "make-move", move))
	require.Equal(t, "make-move-response", resp.Type, string(resp.Data))
	moved := decodeGame(t, resp)
	assert.Equal(t, joined.OpponentColor, moved.CurrentTurn)

	resp = b.dispatch(ctx, request(t, 1, "get-balance", ``))
	require.Equal(t, "get-balance-response", resp.Type)
	var player comm.PlayerData
	require.NoError(t, json.Unmarshal(resp.Data, &player))
	assert.Equal(t, "400.00", player.Balance)
}

func TestDispatchErrors(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		msg      *comm.WSMessage
		wantCode string
	}{
		{"anonymous", request(t, 0, "get-balance", ``), "validation_error"},
		{"bad payload", request(t, 1, "create-game", `{"bet_amount":`), "validation_error"},
		{"poor bet", request(t, 1, "create-game", `{"bet_amount":"900"}`), "insufficient_funds"},
		{"missing game", request(t, 1, "resign-game", `{"game_id":99}`), "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := b.dispatch(ctx, tt.msg)
			require.NotNil(t, resp)
			require.Equal(t, "error", resp.Type)

			var e comm.ErrorData
			require.NoError(t, json.Unmarshal(resp.Data, &e))
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.msg.Type, e.Request)
		})
	}

	assert.Nil(t, b.dispatch(ctx, request(t, 1, "unknown-command", `{}`)))
}

func TestDispatchInitUsesAuthenticatedID(t *testing.T) {
	b := newTestBroker(t)

	resp := b.dispatch(context.Background(), request(t, 7, "init", `{"user_id":1,"name":"newcomer"}`))
	require.Equal(t, "init-response", resp.Type, string(resp.Data))

	var player comm.PlayerData
	require.NoError(t, json.Unmarshal(resp.Data, &player))
	assert.Equal(t, int64(7), player.UserId)
	assert.Equal(t, "newcomer", player.Name)
	assert.Equal(t, "0.00", player.Balance)
}

func TestEventMessages(t *testing.T) {
	g := &models.Game{ID: 12, Code: "ABC123", Status: models.GameWaiting}

	msgs, err := eventMessages(models.GameEvent{Type: models.EventGameCreated, Game: g})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "game.12", msgs[0].Room)
	assert.Equal(t, comm.LobbyRoom, msgs[1].Room)
	assert.Equal(t, "game-created", msgs[0].Type)
	assert.Equal(t, msgs[0].Data, msgs[1].Data)

	g.Status = models.GameInProgress
	msgs, err = eventMessages(models.GameEvent{Type: models.EventMoveMade, Game: g, Move: &models.GameMove{MoveNumber: 1}})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	var data comm.GameData
	require.NoError(t, json.Unmarshal(msgs[0].Data, &data))
	require.NotNil(t, data.Move)
	assert.Equal(t, 1, data.Move.MoveNumber)

	_, err = eventMessages(models.GameEvent{Type: models.EventGameEnded})
	assert.Error(t, err)
}

func jsonInt(n int64) string {
	data, _ := json.Marshal(n)
	return string(data)
}
