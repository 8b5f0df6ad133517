package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
)

type UserStore struct {
	db DBTX
}

func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

func (r *UserStore) CreateUser(ctx context.Context, user models.User) (int64, error) {
	var userId int64

	query := `
        INSERT INTO users (user_id, name, email, phone, avatar, status, wallet_balance)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING user_id;
    `

	err := r.db.QueryRow(ctx, query, user.UserId, user.Name, user.Email, user.Phone, user.Avatar, user.Status, user.WalletBalance).Scan(&userId)
	if err != nil {
		return 0, fmt.Errorf("could not create user: %w", translate(err))
	}

	return userId, nil
}

func (r *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
        SELECT user_id, name, email, phone, avatar, status, wallet_balance,
               total_games_played, total_wins, total_losses, total_ties, total_earnings,
               created_at, updated_at
        FROM users
        WHERE user_id = $1
    `, id)

	u := &models.User{}
	err := row.Scan(
		&u.UserId,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.Avatar,
		&u.Status,
		&u.WalletBalance,
		&u.TotalGamesPlayed,
		&u.TotalWins,
		&u.TotalLosses,
		&u.TotalTies,
		&u.TotalEarnings,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", translate(err))
	}

	return u, nil
}

func (r *UserStore) ApplyStats(ctx context.Context, userID int64, d models.StatsDelta) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE users
        SET total_games_played = total_games_played + $2,
            total_wins = total_wins + $3,
            total_losses = total_losses + $4,
            total_ties = total_ties + $5,
            total_earnings = total_earnings + $6,
            updated_at = now()
        WHERE user_id = $1
    `, userID, d.GamesPlayed, d.Wins, d.Losses, d.Ties, d.Earnings)
	if err != nil {
		return fmt.Errorf("failed to update stats of user %d: %w", userID, translate(err))
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	return nil
}

// TopPlayers ranks by wins, then by games played.
func (r *UserStore) TopPlayers(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	return r.leaderboard(ctx, `
        SELECT user_id, name, avatar, total_games_played, total_wins, total_earnings
        FROM users
        WHERE total_games_played > 0
        ORDER BY total_wins DESC, total_games_played DESC, user_id
        LIMIT $1
    `, limit)
}

func (r *UserStore) TopEarners(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	return r.leaderboard(ctx, `
        SELECT user_id, name, avatar, total_games_played, total_wins, total_earnings
        FROM users
        WHERE total_games_played > 0
        ORDER BY total_earnings DESC, user_id
        LIMIT $1
    `, limit)
}

func (r *UserStore) leaderboard(ctx context.Context, query string, limit int) ([]*models.LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", translate(err))
	}
	defer rows.Close()

	entries := []*models.LeaderboardEntry{}
	for rows.Next() {
		e := &models.LeaderboardEntry{}
		if err := rows.Scan(&e.UserId, &e.Name, &e.Avatar, &e.TotalGamesPlayed, &e.TotalWins, &e.TotalEarnings); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
