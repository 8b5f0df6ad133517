package models

import (
	"time"

	"github.com/avvvet/draught-services/internal/draughts"
	"github.com/shopspring/decimal"
)

type GameStatus string

const (
	GameWaiting    GameStatus = "waiting"
	GameInProgress GameStatus = "in_progress"
	GameCompleted  GameStatus = "completed"
	GameCancelled  GameStatus = "cancelled"
)

type GameResult string

const (
	ResultWin       GameResult = "win"
	ResultTie       GameResult = "tie"
	ResultCancelled GameResult = "cancelled"
)

// CodeLength is the length of the join code handed to the opponent.
const CodeLength = 6

type Game struct {
	ID              int64           `json:"id"`
	Code            string          `json:"game_code"`
	CreatorID       int64           `json:"creator_id"`
	OpponentID      *int64          `json:"opponent_id,omitempty"`
	Status          GameStatus      `json:"status"`
	BetAmount       decimal.Decimal `json:"bet_amount"`
	TotalPot        decimal.Decimal `json:"total_pot"`
	AdminCommission decimal.Decimal `json:"admin_commission"`
	PrizeAmount     decimal.Decimal `json:"prize_amount"`
	CreatorColor    draughts.Color  `json:"creator_color"`
	OpponentColor   draughts.Color  `json:"opponent_color,omitempty"`
	CurrentTurn     draughts.Color  `json:"current_turn,omitempty"`
	WinnerID        *int64          `json:"winner_id,omitempty"`
	Result          GameResult      `json:"result,omitempty"`
	Board           *draughts.Board `json:"board_state,omitempty"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PlayerColor returns the color userID plays in this game.
func (g *Game) PlayerColor(userID int64) (draughts.Color, bool) {
	switch {
	case userID == g.CreatorID:
		return g.CreatorColor, true
	case g.OpponentID != nil && userID == *g.OpponentID:
		return g.OpponentColor, true
	}
	return "", false
}

// PlayerFor returns the user playing color c.
func (g *Game) PlayerFor(c draughts.Color) (int64, bool) {
	switch {
	case c == g.CreatorColor:
		return g.CreatorID, true
	case g.OpponentID != nil && c == g.OpponentColor:
		return *g.OpponentID, true
	}
	return 0, false
}

func (g *Game) IsPlayerTurn(userID int64) bool {
	c, ok := g.PlayerColor(userID)
	return ok && g.Status == GameInProgress && c == g.CurrentTurn
}

func (g *Game) IsTerminal() bool {
	return g.Status == GameCompleted || g.Status == GameCancelled
}

// Clone returns a deep copy of g.
func (g *Game) Clone() *Game {
	c := *g
	if g.OpponentID != nil {
		id := *g.OpponentID
		c.OpponentID = &id
	}
	if g.WinnerID != nil {
		id := *g.WinnerID
		c.WinnerID = &id
	}
	if g.Board != nil {
		b := *g.Board
		c.Board = &b
	}
	if g.StartedAt != nil {
		t := *g.StartedAt
		c.StartedAt = &t
	}
	if g.CompletedAt != nil {
		t := *g.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
