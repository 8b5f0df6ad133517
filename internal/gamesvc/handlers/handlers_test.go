package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avvvet/draught-services/internal/auth"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/service"
	"github.com/avvvet/draught-services/internal/gamesvc/store/memstore"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type testServer struct {
	router http.Handler
	store  *memstore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := memstore.New()
	st.AddUser(1, "creator", decimal.NewFromInt(500))
	st.AddUser(2, "opponent", decimal.NewFromInt(500))

	games := service.NewGameService(st, nil, service.GameConfig{
		MinBet:         decimal.NewFromInt(50),
		CommissionRate: decimal.RequireFromString("0.25"),
	})
	h := NewHandler(games, service.NewBalanceService(st, nil), service.NewUserService(st.Users()), "8080")
	h.InitAuth(secret)

	r := chi.NewRouter()
	h.SetRoutes(r)
	return &testServer{router: r, store: st}
}

func (s *testServer) do(t *testing.T, userID int64, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID > 0 {
		token, err := auth.IssueToken(auth.New(secret), userID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var rsp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	}
	return rec, rsp
}

func gameFrom(t *testing.T, rsp Response) models.Game {
	t.Helper()
	data, err := json.Marshal(rsp.Data)
	require.NoError(t, err)
	var g models.Game
	require.NoError(t, json.Unmarshal(data, &g))
	return g
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)

	rec, rsp := s.do(t, 0, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rsp.Message, "8080")
}

func TestRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, 0, http.MethodGet, "/v1/wallet/balance", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGameLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	rec, rsp := s.do(t, 1, http.MethodPost, "/v1/games", `{"bet_amount":"100"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := gameFrom(t, rsp)
	assert.Equal(t, models.GameWaiting, created.Status)

	rec, rsp = s.do(t, 0, http.MethodGet, "/v1/games/lobby", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, rsp = s.do(t, 2, http.MethodGet, "/v1/games/lobby", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rsp.Data, 1)

	rec, rsp = s.do(t, 2, http.MethodPost, "/v1/games/join", `{"game_code":"`+strings.ToLower(created.Code)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	joined := gameFrom(t, rsp)
	assert.Equal(t, models.GameInProgress, joined.Status)

	path := fmt.Sprintf("/v1/games/%d", joined.ID)

	rec, rsp = s.do(t, 2, http.MethodPost, path+"/move", `{"from":{"row":2,"col":1},"to":{"row":3,"col":0},"captured":[]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_your_turn", rsp.Message)

	rec, _ = s.do(t, 1, http.MethodPost, path+"/move", `{"from":{"row":5,"col":0},"to":{"row":4,"col":1},"captured":[]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, rsp = s.do(t, 1, http.MethodGet, path+"/moves", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rsp.Data, 1)

	rec, rsp = s.do(t, 1, http.MethodPost, path+"/resign", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := gameFrom(t, rsp)
	assert.Equal(t, models.GameCompleted, done.Status)
	require.NotNil(t, done.WinnerID)
	assert.Equal(t, int64(2), *done.WinnerID)

	rec, rsp = s.do(t, 2, http.MethodPost, path+"/resign", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", rsp.Message)

	rec, rsp = s.do(t, 2, http.MethodGet, "/v1/wallet/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"balance": "550.00"}, rsp.Data)

	rec, rsp = s.do(t, 2, http.MethodGet, path+"/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rsp.Data)
	rec, _ = s.do(t, 3, http.MethodGet, path+"/transactions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, rsp = s.do(t, 2, http.MethodGet, "/v1/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	me, ok := rsp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "opponent", me["name"])

	rec, rsp = s.do(t, 2, http.MethodGet, "/v1/leaderboard/players", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rsp.Data, 2)
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t)

	rec, rsp := s.do(t, 1, http.MethodPost, "/v1/games", `{"bet_amount":"100"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	g := gameFrom(t, rsp)
	path := fmt.Sprintf("/v1/games/%d", g.ID)

	tests := []struct {
		name   string
		user   int64
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed body", 1, http.MethodPost, "/v1/games", `{"bet_amount":`, http.StatusBadRequest},
		{"unknown field", 1, http.MethodPost, "/v1/games", `{"bet_amount":"100","fee":1}`, http.StatusBadRequest},
		{"bet below minimum", 1, http.MethodPost, "/v1/games", `{"bet_amount":"10"}`, http.StatusUnprocessableEntity},
		{"insufficient funds", 1, http.MethodPost, "/v1/games", `{"bet_amount":"450"}`, http.StatusPaymentRequired},
		{"join own game", 1, http.MethodPost, "/v1/games/join", `{"game_code":"` + g.Code + `"}`, http.StatusBadRequest},
		{"unknown code", 2, http.MethodPost, "/v1/games/join", `{"game_code":"ZZZZZZ"}`, http.StatusNotFound},
		{"bad game id", 1, http.MethodGet, "/v1/games/abc", "", http.StatusBadRequest},
		{"missing game", 1, http.MethodGet, "/v1/games/999", "", http.StatusNotFound},
		{"move before join", 1, http.MethodPost, path + "/move", `{"from":{"row":5,"col":0},"to":{"row":4,"col":1},"captured":[]}`, http.StatusConflict},
		{"alternate move shape", 1, http.MethodPost, path + "/move", `{"from":[5,0],"to":[4,1]}`, http.StatusBadRequest},
		{"move without destination", 1, http.MethodPost, path + "/move", `{"from":{"row":5,"col":0}}`, http.StatusBadRequest},
		{"cancel someone else's game", 2, http.MethodPost, path + "/cancel", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := s.do(t, tt.user, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec, rsp = s.do(t, 1, http.MethodPost, path+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.GameCancelled, gameFrom(t, rsp).Status)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("wrapped: %w", models.ErrConcurrencyConflict)))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(models.ErrIllegalMove))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("%w: boom", models.ErrInternal)))
}
