package models

import (
	"time"

	"github.com/avvvet/draught-services/internal/draughts"
)

// GameMove is one applied move. Rows are never updated or deleted.
type GameMove struct {
	ID       int64 `json:"id"`
	GameID   int64 `json:"game_id"`
	PlayerID int64 `json:"player_id"`
	// MoveNumber starts at 1 and has no gaps within a game.
	MoveNumber int `json:"move_number"`
	draughts.Move
	IsKingPromotion bool           `json:"is_king_promotion"`
	BoardAfter      draughts.Board `json:"board_state_after"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (m *GameMove) IsCapture() bool {
	return len(m.Captured) > 0
}
