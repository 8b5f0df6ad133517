package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Games interface {
	// CreateGame inserts g and fills its ID. It returns false when the code is already taken.
	CreateGame(ctx context.Context, g *models.Game) (bool, error)
	GetGame(ctx context.Context, id int64) (*models.Game, error)
	GetGameForUpdate(ctx context.Context, id int64) (*models.Game, error)
	GetGameByCode(ctx context.Context, code string) (*models.Game, error)
	GetGameByCodeForUpdate(ctx context.Context, code string) (*models.Game, error)
	// UpdateGame writes g if the stored status still equals from.
	UpdateGame(ctx context.Context, g *models.Game, from models.GameStatus) error
	ListWaiting(ctx context.Context, limit int) ([]*models.Game, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Game, error)
	ListStaleWaiting(ctx context.Context, before time.Time, limit int) ([]int64, error)
}

type Moves interface {
	InsertMove(ctx context.Context, m *models.GameMove) error
	LastMoveNumber(ctx context.Context, gameID int64) (int, error)
	// RecentMoves returns up to limit latest moves in ascending move order.
	RecentMoves(ctx context.Context, gameID int64, limit int) ([]*models.GameMove, error)
	ListMoves(ctx context.Context, gameID int64) ([]*models.GameMove, error)
}

// Wallets is the wallet ledger. Debit fails closed with models.ErrInsufficientFunds.
type Wallets interface {
	Debit(ctx context.Context, userID int64, amount decimal.Decimal) error
	Credit(ctx context.Context, userID int64, amount decimal.Decimal) error
	RecordTransaction(ctx context.Context, t *models.Transaction) error
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*models.Transaction, error)
	ListGameTransactions(ctx context.Context, gameID int64) ([]*models.Transaction, error)
	GetTransactionByReferenceForUpdate(ctx context.Context, ref string) (*models.Transaction, error)
	// SetTransactionStatus moves a pending transaction to status.
	SetTransactionStatus(ctx context.Context, id int64, status models.TransactionStatus, at time.Time) error
	// RecordWithdrawal stores the payout details of a recorded withdrawal entry.
	RecordWithdrawal(ctx context.Context, w *models.Withdrawal) error
	GetWithdrawal(ctx context.Context, ref string) (*models.Withdrawal, error)
}

type Users interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) (int64, error)
	ApplyStats(ctx context.Context, userID int64, d models.StatsDelta) error
	TopPlayers(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	TopEarners(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
}

type Repos interface {
	Games() Games
	Moves() Moves
	Wallets() Wallets
	Users() Users
}

// Store gives direct access to the repositories and runs units of work.
// Everything done through the Repos passed to fn commits or rolls back together.
type Store interface {
	Repos
	InTx(ctx context.Context, fn func(tx Repos) error) error
}

type repos struct {
	games   *GameStore
	moves   *MoveStore
	wallets *BalanceStore
	users   *UserStore
}

func newRepos(db DBTX) repos {
	return repos{
		games:   NewGameStore(db),
		moves:   NewMoveStore(db),
		wallets: NewBalanceStore(db),
		users:   NewUserStore(db),
	}
}

func (r repos) Games() Games     { return r.games }
func (r repos) Moves() Moves     { return r.moves }
func (r repos) Wallets() Wallets { return r.wallets }
func (r repos) Users() Users     { return r.users }

type PgStore struct {
	repos
	pool *pgxpool.Pool
}

var _ Store = (*PgStore)(nil)

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{repos: newRepos(pool), pool: pool}
}

func (s *PgStore) InTx(ctx context.Context, fn func(tx Repos) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", translate(err))
	}
	defer tx.Rollback(ctx)

	if err := fn(newRepos(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", translate(err))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// translate maps lock and serialization failures to models.ErrConcurrencyConflict.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %s", models.ErrConcurrencyConflict, pgErr.Message)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
