package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents the users table in the database.
type User struct {
	UserId           int64           `json:"user_id"`
	Name             string          `json:"name"`
	Avatar           string          `json:"avatar,omitempty"`
	Email            string          `json:"email,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	Status           string          `json:"status,omitempty"`
	WalletBalance    decimal.Decimal `json:"wallet_balance"`
	TotalGamesPlayed int             `json:"total_games_played"`
	TotalWins        int             `json:"total_wins"`
	TotalLosses      int             `json:"total_losses"`
	TotalTies        int             `json:"total_ties"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

const UserActive = "ACTIVE"

// StatsDelta is added to a user's game counters when a game is settled.
type StatsDelta struct {
	GamesPlayed int
	Wins        int
	Losses      int
	Ties        int
	Earnings    decimal.Decimal
}

// LeaderboardEntry is a user row as shown on the leaderboards.
type LeaderboardEntry struct {
	UserId           int64           `json:"user_id"`
	Name             string          `json:"name"`
	Avatar           string          `json:"avatar,omitempty"`
	TotalGamesPlayed int             `json:"total_games_played"`
	TotalWins        int             `json:"total_wins"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
}
