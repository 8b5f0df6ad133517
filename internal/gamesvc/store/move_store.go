package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avvvet/draught-services/internal/draughts"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
)

type MoveStore struct {
	db DBTX
}

func NewMoveStore(db DBTX) *MoveStore {
	return &MoveStore{db: db}
}

const moveColumns = `
	id, game_id, player_id, move_number, from_row, from_col, to_row, to_col,
	captured_positions, is_king_promotion, board_state_after, created_at`

func (s *MoveStore) InsertMove(ctx context.Context, m *models.GameMove) error {
	captured := m.Captured
	if captured == nil {
		captured = []draughts.Position{}
	}
	capturedJSON, err := json.Marshal(captured)
	if err != nil {
		return fmt.Errorf("failed to encode captured positions: %w", err)
	}
	boardJSON, err := json.Marshal(m.BoardAfter)
	if err != nil {
		return fmt.Errorf("failed to encode board: %w", err)
	}

	query := `
		INSERT INTO game_moves (
			game_id, player_id, move_number, from_row, from_col, to_row, to_col,
			captured_positions, is_king_promotion, board_state_after, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10::jsonb, $11)
		RETURNING id`

	err = s.db.QueryRow(ctx, query,
		m.GameID,
		m.PlayerID,
		m.MoveNumber,
		m.From.Row,
		m.From.Col,
		m.To.Row,
		m.To.Col,
		string(capturedJSON),
		m.IsKingPromotion,
		string(boardJSON),
		m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("move %d of game %d already recorded: %w", m.MoveNumber, m.GameID, models.ErrConcurrencyConflict)
		}
		return fmt.Errorf("failed to insert move: %w", translate(err))
	}
	return nil
}

func (s *MoveStore) LastMoveNumber(ctx context.Context, gameID int64) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(move_number), 0)
		FROM game_moves
		WHERE game_id = $1`, gameID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count moves: %w", translate(err))
	}
	return n, nil
}

func (s *MoveStore) RecentMoves(ctx context.Context, gameID int64, limit int) ([]*models.GameMove, error) {
	moves, err := s.list(ctx, `
		SELECT `+moveColumns+`
		FROM game_moves
		WHERE game_id = $1
		ORDER BY move_number DESC
		LIMIT $2`, gameID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(moves)-1; i < j; i, j = i+1, j-1 {
		moves[i], moves[j] = moves[j], moves[i]
	}
	return moves, nil
}

func (s *MoveStore) ListMoves(ctx context.Context, gameID int64) ([]*models.GameMove, error) {
	return s.list(ctx, `
		SELECT `+moveColumns+`
		FROM game_moves
		WHERE game_id = $1
		ORDER BY move_number`, gameID)
}

func (s *MoveStore) list(ctx context.Context, query string, args ...any) ([]*models.GameMove, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list moves: %w", translate(err))
	}
	defer rows.Close()

	moves := []*models.GameMove{}
	for rows.Next() {
		var (
			m               models.GameMove
			captured, board []byte
		)
		err := rows.Scan(
			&m.ID,
			&m.GameID,
			&m.PlayerID,
			&m.MoveNumber,
			&m.From.Row,
			&m.From.Col,
			&m.To.Row,
			&m.To.Col,
			&captured,
			&m.IsKingPromotion,
			&board,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan move: %w", err)
		}
		if err := json.Unmarshal(captured, &m.Captured); err != nil {
			return nil, fmt.Errorf("failed to decode captured positions: %w", err)
		}
		if err := json.Unmarshal(board, &m.BoardAfter); err != nil {
			return nil, fmt.Errorf("failed to decode board: %w", err)
		}
		moves = append(moves, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return moves, nil
}
