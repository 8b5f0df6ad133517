package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/draught-services/internal/draughts"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/store"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	LobbySize    = 50
	GamesPerPage = 15
)

type GameConfig struct {
	MinBet         decimal.Decimal
	CommissionRate decimal.Decimal
	// Rules defaults to draughts.BasicRules.
	Rules draughts.Rules
}

// GameService runs the game lifecycle: waiting, in_progress, then completed or cancelled.
// Every mutation runs as one unit of work holding the game's row lock.
type GameService struct {
	store      store.Store
	rules      draughts.Rules
	settlement *Settlement
	events     EventPublisher
	minBet     decimal.Decimal

	now     func() time.Time
	codeGen func() (string, error)
}

func NewGameService(st store.Store, events EventPublisher, cfg GameConfig) *GameService {
	rules := cfg.Rules
	if rules == nil {
		rules = draughts.BasicRules{}
	}
	return &GameService{
		store:      st,
		rules:      rules,
		settlement: NewSettlement(cfg.CommissionRate),
		events:     events,
		minBet:     cfg.MinBet,
		now:        time.Now,
		codeGen:    generateCode,
	}
}

// CreateGame debits the stake from userID and opens a waiting game with the creator playing red.
func (s *GameService) CreateGame(ctx context.Context, userID int64, bet decimal.Decimal) (*models.Game, error) {
	if err := s.validateBet(bet); err != nil {
		return nil, err
	}

	var game *models.Game
	err := s.store.InTx(ctx, func(tx store.Repos) error {
		if err := tx.Wallets().Debit(ctx, userID, bet); err != nil {
			return err
		}

		now := s.now()
		g := &models.Game{
			CreatorID:    userID,
			Status:       models.GameWaiting,
			BetAmount:    bet,
			CreatorColor: draughts.Red,
			CreatedAt:    now,
		}
		if err := s.insertWithCode(ctx, tx, g); err != nil {
			return err
		}

		if err := tx.Wallets().RecordTransaction(ctx, &models.Transaction{
			UserID:      &userID,
			GameID:      &g.ID,
			Type:        models.TxBetPlaced,
			Amount:      bet,
			Status:      models.TxCompleted,
			Description: fmt.Sprintf("Bet placed for game %s", g.Code),
			CompletedAt: &now,
		}); err != nil {
			return err
		}

		game = g
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	log.WithFields(log.Fields{"game": game.Code, "user": userID, "bet": bet.StringFixed(2)}).Info("game created")
	s.publish(ctx, models.EventGameCreated, game, nil)
	return game, nil
}

// insertWithCode retries on code collisions, which the store reports at insert time.
func (s *GameService) insertWithCode(ctx context.Context, tx store.Repos, g *models.Game) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codeGen()
		if err != nil {
			return fmt.Errorf("generate game code: %w", err)
		}
		g.Code = code

		created, err := tx.Games().CreateGame(ctx, g)
		if err != nil {
			return err
		}
		if created {
			return nil
		}
		log.Warnf("game code %s already taken, regenerating", code)
	}
	return fmt.Errorf("%w: no free game code after %d attempts", models.ErrConcurrencyConflict, maxCodeAttempts)
}

// JoinGame matches the stake of a waiting game and starts it. Red (the creator) moves first.
func (s *GameService) JoinGame(ctx context.Context, userID int64, code string) (*models.Game, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !validCode(code) {
		return nil, fmt.Errorf("%w: game code must be %d letters or digits", models.ErrValidation, models.CodeLength)
	}

	var game *models.Game
	err := s.store.InTx(ctx, func(tx store.Repos) error {
		g, err := tx.Games().GetGameByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if g.Status != models.GameWaiting {
			return fmt.Errorf("%w: game %s is %s", models.ErrInvalidState, code, g.Status)
		}
		if g.CreatorID == userID {
			return models.ErrCannotJoinOwnGame
		}

		if err := tx.Wallets().Debit(ctx, userID, g.BetAmount); err != nil {
			return err
		}

		now := s.now()
		board := draughts.NewBoard()
		g.TotalPot, g.AdminCommission, g.PrizeAmount = s.settlement.Split(g.BetAmount)
		g.OpponentID = &userID
		g.OpponentColor = g.CreatorColor.Opponent()
		g.CurrentTurn = g.CreatorColor
		g.Board = &board
		g.StartedAt = &now
		g.Status = models.GameInProgress
		g.UpdatedAt = now

		if err := tx.Games().UpdateGame(ctx, g, models.GameWaiting); err != nil {
			return err
		}

		if err := tx.Wallets().RecordTransaction(ctx, &models.Transaction{
			UserID:      &userID,
			GameID:      &g.ID,
			Type:        models.TxBetPlaced,
			Amount:      g.BetAmount,
			Status:      models.TxCompleted,
			Description: fmt.Sprintf("Bet placed for game %s", g.Code),
			CompletedAt: &now,
		}); err != nil {
			return err
		}

		game = g
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	log.WithFields(log.Fields{"game": game.Code, "user": userID, "pot": game.TotalPot.StringFixed(2)}).Info("game joined")
	s.publish(ctx, models.EventGameJoined, game, nil)
	return game, nil
}

// MakeMove validates and applies move for userID, records it, and settles the game when it ends.
func (s *GameService) MakeMove(ctx context.Context, gameID, userID int64, move draughts.Move) (*models.Game, error) {
	if err := move.Check(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	var (
		game  *models.Game
		moved *models.GameMove
	)
	err := s.store.InTx(ctx, func(tx store.Repos) error {
		g, err := tx.Games().GetGameForUpdate(ctx, gameID)
		if err != nil {
			return err
		}
		if g.Status != models.GameInProgress {
			return fmt.Errorf("%w: game %s is %s", models.ErrInvalidState, g.Code, g.Status)
		}
		if !g.IsPlayerTurn(userID) {
			return models.ErrNotYourTurn
		}
		color := g.CurrentTurn
		if g.Board == nil {
			return fmt.Errorf("game %d is in progress without a board", g.ID)
		}

		if err := s.rules.Validate(*g.Board, move, color); err != nil {
			if errors.Is(err, draughts.ErrOutOfBounds) {
				return fmt.Errorf("%w: %v", models.ErrValidation, err)
			}
			return fmt.Errorf("%w: %v", models.ErrIllegalMove, err)
		}

		last, err := tx.Moves().LastMoveNumber(ctx, g.ID)
		if err != nil {
			return err
		}

		now := s.now()
		next := s.rules.Apply(*g.Board, move)
		m := &models.GameMove{
			GameID:          g.ID,
			PlayerID:        userID,
			MoveNumber:      last + 1,
			Move:            move,
			IsKingPromotion: draughts.Promotes(*g.Board, move),
			BoardAfter:      next,
			CreatedAt:       now,
		}
		if err := tx.Moves().InsertMove(ctx, m); err != nil {
			return err
		}

		recent, err := tx.Moves().RecentMoves(ctx, g.ID, draughts.NoCaptureLimit)
		if err != nil {
			return err
		}
		history := make([]draughts.Move, len(recent))
		for i, r := range recent {
			history[i] = r.Move
		}

		g.Board = &next
		g.UpdatedAt = now

		outcome := s.rules.CheckEnd(next, history)
		if outcome.Terminal() {
			if err := s.settlement.Settle(ctx, tx, g, outcome, now); err != nil {
				return err
			}
		} else {
			g.CurrentTurn = g.CurrentTurn.Opponent()
		}

		if err := tx.Games().UpdateGame(ctx, g, models.GameInProgress); err != nil {
			return err
		}

		game, moved = g, m
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	if game.IsTerminal() {
		s.publish(ctx, models.EventGameEnded, game, moved)
	} else {
		s.publish(ctx, models.EventMoveMade, game, moved)
	}
	return game, nil
}

// ResignGame ends the game in favour of the resigning player's opponent.
func (s *GameService) ResignGame(ctx context.Context, gameID, userID int64) (*models.Game, error) {
	var game *models.Game
	err := s.store.InTx(ctx, func(tx store.Repos) error {
		g, err := tx.Games().GetGameForUpdate(ctx, gameID)
		if err != nil {
			return err
		}
		if g.Status != models.GameInProgress {
			return fmt.Errorf("%w: game %s is %s", models.ErrInvalidState, g.Code, g.Status)
		}
		color, ok := g.PlayerColor(userID)
		if !ok {
			return fmt.Errorf("user %d is not playing game %s: %w", userID, g.Code, models.ErrNotFound)
		}

		if err := s.settlement.Settle(ctx, tx, g, draughts.WinFor(color.Opponent()), s.now()); err != nil {
			return err
		}
		if err := tx.Games().UpdateGame(ctx, g, models.GameInProgress); err != nil {
			return err
		}

		game = g
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	log.WithFields(log.Fields{"game": game.Code, "user": userID}).Info("player resigned")
	s.publish(ctx, models.EventGameEnded, game, nil)
	return game, nil
}

// CancelGame lets the creator withdraw a game nobody has joined; the stake is refunded.
func (s *GameService) CancelGame(ctx context.Context, gameID, userID int64) (*models.Game, error) {
	return s.cancel(ctx, gameID, func(g *models.Game) error {
		if g.CreatorID != userID {
			return fmt.Errorf("user %d did not create game %s: %w", userID, g.Code, models.ErrNotFound)
		}
		return nil
	})
}

// ExpireStaleGames cancels waiting games created before now-olderThan and returns how many were cancelled.
func (s *GameService) ExpireStaleGames(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	ids, err := s.store.Games().ListStaleWaiting(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return 0, wrapInternal(err)
	}

	var errs []error
	cancelled := 0
	for _, id := range ids {
		_, err := s.cancel(ctx, id, nil)
		switch {
		case err == nil:
			cancelled++
		case errors.Is(err, models.ErrInvalidState):
			// joined since it was listed
		default:
			errs = append(errs, fmt.Errorf("game %d: %w", id, err))
		}
	}
	return cancelled, errors.Join(errs...)
}

func (s *GameService) cancel(ctx context.Context, gameID int64, allowed func(*models.Game) error) (*models.Game, error) {
	var game *models.Game
	err := s.store.InTx(ctx, func(tx store.Repos) error {
		g, err := tx.Games().GetGameForUpdate(ctx, gameID)
		if err != nil {
			return err
		}
		if g.Status != models.GameWaiting {
			return fmt.Errorf("%w: game %s is %s", models.ErrInvalidState, g.Code, g.Status)
		}
		if allowed != nil {
			if err := allowed(g); err != nil {
				return err
			}
		}

		if err := tx.Wallets().Credit(ctx, g.CreatorID, g.BetAmount); err != nil {
			return err
		}

		now := s.now()
		if err := tx.Wallets().RecordTransaction(ctx, &models.Transaction{
			UserID:      &g.CreatorID,
			GameID:      &g.ID,
			Type:        models.TxBetRefund,
			Amount:      g.BetAmount,
			Status:      models.TxCompleted,
			Description: fmt.Sprintf("Refund for cancelled game %s", g.Code),
			CompletedAt: &now,
		}); err != nil {
			return err
		}

		g.Status = models.GameCancelled
		g.Result = models.ResultCancelled
		g.CompletedAt = &now
		g.UpdatedAt = now
		if err := tx.Games().UpdateGame(ctx, g, models.GameWaiting); err != nil {
			return err
		}

		game = g
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}

	log.WithFields(log.Fields{"game": game.Code, "refund": game.BetAmount.StringFixed(2)}).Info("game cancelled")
	s.publish(ctx, models.EventGameCancelled, game, nil)
	return game, nil
}

func (s *GameService) GetGame(ctx context.Context, gameID int64) (*models.Game, error) {
	g, err := s.store.Games().GetGame(ctx, gameID)
	return g, wrapInternal(err)
}

func (s *GameService) GetGameByCode(ctx context.Context, code string) (*models.Game, error) {
	g, err := s.store.Games().GetGameByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	return g, wrapInternal(err)
}

// Moves returns the full move history of a game.
func (s *GameService) Moves(ctx context.Context, gameID int64) ([]*models.GameMove, error) {
	if _, err := s.store.Games().GetGame(ctx, gameID); err != nil {
		return nil, wrapInternal(err)
	}
	moves, err := s.store.Moves().ListMoves(ctx, gameID)
	return moves, wrapInternal(err)
}

// Lobby lists games waiting for an opponent.
func (s *GameService) Lobby(ctx context.Context) ([]*models.Game, error) {
	games, err := s.store.Games().ListWaiting(ctx, LobbySize)
	return games, wrapInternal(err)
}

// UserGames pages through the games userID created or joined, newest first. Pages start at 1.
func (s *GameService) UserGames(ctx context.Context, userID int64, page int) ([]*models.Game, error) {
	if page < 1 {
		page = 1
	}
	games, err := s.store.Games().ListByUser(ctx, userID, GamesPerPage, (page-1)*GamesPerPage)
	return games, wrapInternal(err)
}

func (s *GameService) validateBet(bet decimal.Decimal) error {
	if !bet.IsPositive() {
		return fmt.Errorf("%w: bet amount must be positive", models.ErrValidation)
	}
	if bet.LessThan(s.minBet) {
		return fmt.Errorf("%w: minimum bet is %s", models.ErrValidation, s.minBet.StringFixed(2))
	}
	if !bet.Equal(bet.Truncate(2)) {
		return fmt.Errorf("%w: bet amount has more than two decimal places", models.ErrValidation)
	}
	// commission and each tie share must come out in whole cents
	pot := bet.Mul(two)
	commission := pot.Mul(s.settlement.rate)
	half := pot.Sub(commission).Div(two)
	if !commission.Equal(commission.Truncate(2)) || !half.Equal(half.Truncate(2)) {
		return fmt.Errorf("%w: bet amount %s does not split into whole cents", models.ErrValidation, bet.StringFixed(2))
	}
	return nil
}

func (s *GameService) publish(ctx context.Context, t models.EventType, g *models.Game, m *models.GameMove) {
	if s.events == nil {
		return
	}
	ev := models.GameEvent{Type: t, Game: g, Move: m, OccurredAt: s.now()}
	if err := s.events.PublishGameEvent(ctx, ev); err != nil {
		log.Errorf("Error publishing %s for game %s: %s", t, g.Code, err)
	}
}

// wrapInternal marks storage failures as models.ErrInternal and passes domain errors through.
func wrapInternal(err error) error {
	if err == nil || models.IsDomainError(err) || errors.Is(err, models.ErrInternal) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrInternal, err)
}
