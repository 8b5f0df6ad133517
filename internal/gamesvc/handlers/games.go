package handlers

import (
	"errors"
	"net/http"

	"github.com/avvvet/draught-services/internal/draughts"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/shopspring/decimal"
)

type createGameRequest struct {
	BetAmount decimal.Decimal `json:"bet_amount"`
}

type joinGameRequest struct {
	GameCode string `json:"game_code"`
}

type moveRequest struct {
	From     *draughts.Position  `json:"from"`
	To       *draughts.Position  `json:"to"`
	Captured []draughts.Position `json:"captured"`
}

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req createGameRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}

	g, err := h.games.CreateGame(r.Context(), uid, req.BetAmount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.CreateResponse(w, Response{Message: "game created", Code: http.StatusCreated, Data: g})
}

func (h *Handler) JoinGame(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req joinGameRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}

	g, err := h.games.JoinGame(r.Context(), uid, req.GameCode)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "game joined", g)
}

func (h *Handler) MakeMove(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	gameID, err := gameIDParam(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	if req.From == nil || req.To == nil {
		h.badRequest(w, errors.New("move needs from and to"))
		return
	}

	move := draughts.Move{From: *req.From, To: *req.To, Captured: req.Captured}
	g, err := h.games.MakeMove(r.Context(), gameID, uid, move)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "move accepted", g)
}

func (h *Handler) ResignGame(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	gameID, err := gameIDParam(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	g, err := h.games.ResignGame(r.Context(), gameID, uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "game resigned", g)
}

func (h *Handler) CancelGame(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	gameID, err := gameIDParam(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	g, err := h.games.CancelGame(r.Context(), gameID, uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "game cancelled", g)
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := gameIDParam(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	g, err := h.games.GetGame(r.Context(), gameID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "game", g)
}

func (h *Handler) GameMoves(w http.ResponseWriter, r *http.Request) {
	gameID, err := gameIDParam(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	moves, err := h.games.Moves(r.Context(), gameID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "moves", moves)
}

func (h *Handler) Lobby(w http.ResponseWriter, r *http.Request) {
	games, err := h.games.Lobby(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "lobby", games)
}

func (h *Handler) MyGames(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	games, err := h.games.UserGames(r.Context(), uid, pageParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "games", games)
}

// GameLedger lists the wallet entries posted for a game; only its players may see them.
func (h *Handler) GameLedger(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	gameID, err := gameIDParam(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	g, err := h.games.GetGame(r.Context(), gameID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, ok := g.PlayerColor(uid); !ok {
		h.fail(w, r, models.ErrNotFound)
		return
	}
	txs, err := h.balances.GameTransactions(r.Context(), gameID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "game transactions", txs)
}
