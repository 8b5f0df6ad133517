package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/draught-services/internal/draughts"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
)

type GameStore struct {
	db DBTX
}

func NewGameStore(db DBTX) *GameStore {
	return &GameStore{db: db}
}

const gameColumns = `
	id, game_code, creator_id, opponent_id, status, bet_amount, total_pot,
	admin_commission, prize_amount, creator_color, opponent_color, current_turn,
	winner_id, result, board_state, started_at, completed_at, created_at, updated_at`

func (s *GameStore) CreateGame(ctx context.Context, g *models.Game) (bool, error) {
	query := `
		INSERT INTO games (
			game_code, creator_id, status, bet_amount, total_pot, admin_commission,
			prize_amount, creator_color, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (game_code) DO NOTHING
		RETURNING id`

	err := s.db.QueryRow(ctx, query,
		g.Code,
		g.CreatorID,
		string(g.Status),
		g.BetAmount,
		g.TotalPot,
		g.AdminCommission,
		g.PrizeAmount,
		string(g.CreatorColor),
		g.CreatedAt,
	).Scan(&g.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil // code taken
		}
		return false, fmt.Errorf("failed to create game: %w", translate(err))
	}

	g.UpdatedAt = g.CreatedAt
	return true, nil
}

func (s *GameStore) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	return s.getOne(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
}

// GetGameForUpdate locks the game row until the surrounding transaction ends.
func (s *GameStore) GetGameForUpdate(ctx context.Context, id int64) (*models.Game, error) {
	return s.getOne(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1 FOR UPDATE`, id)
}

func (s *GameStore) GetGameByCode(ctx context.Context, code string) (*models.Game, error) {
	return s.getOne(ctx, `SELECT `+gameColumns+` FROM games WHERE game_code = $1`, code)
}

func (s *GameStore) GetGameByCodeForUpdate(ctx context.Context, code string) (*models.Game, error) {
	return s.getOne(ctx, `SELECT `+gameColumns+` FROM games WHERE game_code = $1 FOR UPDATE`, code)
}

func (s *GameStore) getOne(ctx context.Context, query string, arg any) (*models.Game, error) {
	g, err := scanGame(s.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("game %v: %w", arg, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get game: %w", translate(err))
	}
	return g, nil
}

func (s *GameStore) UpdateGame(ctx context.Context, g *models.Game, from models.GameStatus) error {
	var board any
	if g.Board != nil {
		data, err := json.Marshal(g.Board)
		if err != nil {
			return fmt.Errorf("failed to encode board: %w", err)
		}
		board = string(data)
	}

	query := `
		UPDATE games
		SET opponent_id = $2, status = $3, total_pot = $4, admin_commission = $5,
			prize_amount = $6, opponent_color = $7, current_turn = $8, winner_id = $9,
			result = $10, board_state = $11::jsonb, started_at = $12, completed_at = $13,
			updated_at = $14
		WHERE id = $1 AND status = $15`

	tag, err := s.db.Exec(ctx, query,
		g.ID,
		g.OpponentID,
		string(g.Status),
		g.TotalPot,
		g.AdminCommission,
		g.PrizeAmount,
		nullString(string(g.OpponentColor)),
		nullString(string(g.CurrentTurn)),
		g.WinnerID,
		nullString(string(g.Result)),
		board,
		g.StartedAt,
		g.CompletedAt,
		g.UpdatedAt,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update game %d: %w", g.ID, translate(err))
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("game %d is no longer %s: %w", g.ID, from, models.ErrConcurrencyConflict)
	}
	return nil
}

// ListWaiting returns open games, newest first.
func (s *GameStore) ListWaiting(ctx context.Context, limit int) ([]*models.Game, error) {
	return s.list(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE status = 'waiting'
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
}

func (s *GameStore) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Game, error) {
	return s.list(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE creator_id = $1 OR opponent_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
}

func (s *GameStore) ListStaleWaiting(ctx context.Context, before time.Time, limit int) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id
		FROM games
		WHERE status = 'waiting' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale games: %w", translate(err))
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *GameStore) list(ctx context.Context, query string, args ...any) ([]*models.Game, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", translate(err))
	}
	defer rows.Close()

	games := []*models.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return games, nil
}

func scanGame(row scanner) (*models.Game, error) {
	var (
		g                                  models.Game
		status, creatorColor               string
		opponentColor, currentTurn, result *string
		board                              []byte
	)

	err := row.Scan(
		&g.ID,
		&g.Code,
		&g.CreatorID,
		&g.OpponentID,
		&status,
		&g.BetAmount,
		&g.TotalPot,
		&g.AdminCommission,
		&g.PrizeAmount,
		&creatorColor,
		&opponentColor,
		&currentTurn,
		&g.WinnerID,
		&result,
		&board,
		&g.StartedAt,
		&g.CompletedAt,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.Status = models.GameStatus(status)
	g.CreatorColor = draughts.Color(creatorColor)
	if opponentColor != nil {
		g.OpponentColor = draughts.Color(*opponentColor)
	}
	if currentTurn != nil {
		g.CurrentTurn = draughts.Color(*currentTurn)
	}
	if result != nil {
		g.Result = models.GameResult(*result)
	}
	if len(board) > 0 {
		var b draughts.Board
		if err := json.Unmarshal(board, &b); err != nil {
			return nil, fmt.Errorf("failed to decode board of game %d: %w", g.ID, err)
		}
		g.Board = &b
	}
	return &g, nil
}
