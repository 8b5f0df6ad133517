// Package memstore is an in-memory store.Store. A unit of work holds a
// store-wide lock and works on a copy of the state that replaces the live
// state only when the work succeeds.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avvvet/draught-services/internal/draughts"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/store"
	"github.com/shopspring/decimal"
)

type state struct {
	users  map[int64]*models.User
	games  map[int64]*models.Game
	codes  map[string]int64
	moves  map[int64][]*models.GameMove
	txs    []*models.Transaction
	wdrs   map[string]*models.Withdrawal
	nextID int64
}

func newState() *state {
	return &state{
		users: map[int64]*models.User{},
		games: map[int64]*models.Game{},
		codes: map[string]int64{},
		moves: map[int64][]*models.GameMove{},
		wdrs:  map[string]*models.Withdrawal{},
	}
}

func (st *state) clone() *state {
	c := newState()
	for id, u := range st.users {
		cp := *u
		c.users[id] = &cp
	}
	for id, g := range st.games {
		c.games[id] = g.Clone()
	}
	for code, id := range st.codes {
		c.codes[code] = id
	}
	for id, ms := range st.moves {
		// moves are never modified after insert
		c.moves[id] = append([]*models.GameMove(nil), ms...)
	}
	c.txs = make([]*models.Transaction, len(st.txs))
	for i, t := range st.txs {
		cp := *t
		c.txs[i] = &cp
	}
	for ref, w := range st.wdrs {
		cp := *w
		c.wdrs[ref] = &cp
	}
	c.nextID = st.nextID
	return c
}

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState(), now: time.Now}
}

// AddUser registers a user with the given opening balance.
func (s *Store) AddUser(id int64, name string, balance decimal.Decimal) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	u := &models.User{
		UserId:        id,
		Name:          name,
		Status:        models.UserActive,
		WalletBalance: balance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.st.users[id] = u
	cp := *u
	return &cp
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(&repo{s: s, st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Games() store.Games     { return &repo{s: s} }
func (s *Store) Moves() store.Moves     { return &repo{s: s} }
func (s *Store) Wallets() store.Wallets { return &repo{s: s} }
func (s *Store) Users() store.Users     { return &repo{s: s} }

// repo implements every repository. With st set it is bound to a unit of
// work; otherwise each call locks the store and uses the live state.
type repo struct {
	s  *Store
	st *state
}

func (r *repo) Games() store.Games     { return r }
func (r *repo) Moves() store.Moves     { return r }
func (r *repo) Wallets() store.Wallets { return r }
func (r *repo) Users() store.Users     { return r }

func (r *repo) enter() (*state, func()) {
	if r.st != nil {
		return r.st, func() {}
	}
	r.s.mu.Lock()
	return r.s.st, r.s.mu.Unlock
}

// games

func (r *repo) CreateGame(ctx context.Context, g *models.Game) (bool, error) {
	st, done := r.enter()
	defer done()

	if _, taken := st.codes[g.Code]; taken {
		return false, nil
	}
	g.ID = st.id()
	g.UpdatedAt = g.CreatedAt
	st.games[g.ID] = g.Clone()
	st.codes[g.Code] = g.ID
	return true, nil
}

func (r *repo) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	st, done := r.enter()
	defer done()

	g, ok := st.games[id]
	if !ok {
		return nil, fmt.Errorf("game %d: %w", id, models.ErrNotFound)
	}
	return g.Clone(), nil
}

func (r *repo) GetGameForUpdate(ctx context.Context, id int64) (*models.Game, error) {
	return r.GetGame(ctx, id)
}

func (r *repo) GetGameByCode(ctx context.Context, code string) (*models.Game, error) {
	st, done := r.enter()
	defer done()

	id, ok := st.codes[code]
	if !ok {
		return nil, fmt.Errorf("game %s: %w", code, models.ErrNotFound)
	}
	return st.games[id].Clone(), nil
}

func (r *repo) GetGameByCodeForUpdate(ctx context.Context, code string) (*models.Game, error) {
	return r.GetGameByCode(ctx, code)
}

func (r *repo) UpdateGame(ctx context.Context, g *models.Game, from models.GameStatus) error {
	st, done := r.enter()
	defer done()

	cur, ok := st.games[g.ID]
	if !ok {
		return fmt.Errorf("game %d: %w", g.ID, models.ErrNotFound)
	}
	if cur.Status != from {
		return fmt.Errorf("game %d is no longer %s: %w", g.ID, from, models.ErrConcurrencyConflict)
	}
	st.games[g.ID] = g.Clone()
	return nil
}

func (r *repo) ListWaiting(ctx context.Context, limit int) ([]*models.Game, error) {
	st, done := r.enter()
	defer done()

	return pageGames(st, func(g *models.Game) bool { return g.Status == models.GameWaiting }, limit, 0), nil
}

func (r *repo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Game, error) {
	st, done := r.enter()
	defer done()

	return pageGames(st, func(g *models.Game) bool {
		return g.CreatorID == userID || (g.OpponentID != nil && *g.OpponentID == userID)
	}, limit, offset), nil
}

func (r *repo) ListStaleWaiting(ctx context.Context, before time.Time, limit int) ([]int64, error) {
	st, done := r.enter()
	defer done()

	var stale []*models.Game
	for _, g := range st.games {
		if g.Status == models.GameWaiting && g.CreatedAt.Before(before) {
			stale = append(stale, g)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].ID < stale[j].ID })

	ids := []int64{}
	for _, g := range stale {
		if len(ids) == limit {
			break
		}
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// pageGames returns matching games newest first.
func pageGames(st *state, match func(*models.Game) bool, limit, offset int) []*models.Game {
	var all []*models.Game
	for _, g := range st.games {
		if match(g) {
			all = append(all, g)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	out := []*models.Game{}
	for i := offset; i < len(all) && len(out) < limit; i++ {
		out = append(out, all[i].Clone())
	}
	return out
}

// moves

func (r *repo) InsertMove(ctx context.Context, m *models.GameMove) error {
	st, done := r.enter()
	defer done()

	ms := st.moves[m.GameID]
	if m.MoveNumber != len(ms)+1 {
		return fmt.Errorf("move %d of game %d out of sequence: %w", m.MoveNumber, m.GameID, models.ErrConcurrencyConflict)
	}
	m.ID = st.id()
	cp := *m
	cp.Captured = append([]draughts.Position(nil), m.Captured...)
	st.moves[m.GameID] = append(ms, &cp)
	return nil
}

func (r *repo) LastMoveNumber(ctx context.Context, gameID int64) (int, error) {
	st, done := r.enter()
	defer done()

	return len(st.moves[gameID]), nil
}

func (r *repo) RecentMoves(ctx context.Context, gameID int64, limit int) ([]*models.GameMove, error) {
	st, done := r.enter()
	defer done()

	ms := st.moves[gameID]
	if len(ms) > limit {
		ms = ms[len(ms)-limit:]
	}
	return copyMoves(ms), nil
}

func (r *repo) ListMoves(ctx context.Context, gameID int64) ([]*models.GameMove, error) {
	st, done := r.enter()
	defer done()

	return copyMoves(st.moves[gameID]), nil
}

func copyMoves(ms []*models.GameMove) []*models.GameMove {
	out := make([]*models.GameMove, len(ms))
	for i, m := range ms {
		cp := *m
		out[i] = &cp
	}
	return out
}

// wallets

func (r *repo) Debit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: debit amount must be positive", models.ErrValidation)
	}

	st, done := r.enter()
	defer done()

	u, ok := st.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	if u.WalletBalance.LessThan(amount) {
		return fmt.Errorf("user %d cannot cover %s: %w", userID, amount.StringFixed(2), models.ErrInsufficientFunds)
	}
	u.WalletBalance = u.WalletBalance.Sub(amount)
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *repo) Credit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: credit amount must be positive", models.ErrValidation)
	}

	st, done := r.enter()
	defer done()

	u, ok := st.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	u.WalletBalance = u.WalletBalance.Add(amount)
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *repo) RecordTransaction(ctx context.Context, t *models.Transaction) error {
	st, done := r.enter()
	defer done()

	if t.Reference != "" {
		for _, existing := range st.txs {
			if existing.Reference == t.Reference {
				return fmt.Errorf("reference %s already recorded: %w", t.Reference, models.ErrConcurrencyConflict)
			}
		}
	}
	t.ID = st.id()
	t.CreatedAt = r.s.now()
	cp := *t
	st.txs = append(st.txs, &cp)
	return nil
}

func (r *repo) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	st, done := r.enter()
	defer done()

	u, ok := st.users[userID]
	if !ok {
		return decimal.Zero, fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	return u.WalletBalance, nil
}

func (r *repo) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*models.Transaction, error) {
	st, done := r.enter()
	defer done()

	out := []*models.Transaction{}
	skipped := 0
	for i := len(st.txs) - 1; i >= 0 && len(out) < limit; i-- {
		t := st.txs[i]
		if t.UserID == nil || *t.UserID != userID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *repo) ListGameTransactions(ctx context.Context, gameID int64) ([]*models.Transaction, error) {
	st, done := r.enter()
	defer done()

	out := []*models.Transaction{}
	for _, t := range st.txs {
		if t.GameID != nil && *t.GameID == gameID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *repo) GetTransactionByReferenceForUpdate(ctx context.Context, ref string) (*models.Transaction, error) {
	st, done := r.enter()
	defer done()

	for _, t := range st.txs {
		if t.Reference == ref {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("transaction %s: %w", ref, models.ErrNotFound)
}

func (r *repo) SetTransactionStatus(ctx context.Context, id int64, status models.TransactionStatus, at time.Time) error {
	st, done := r.enter()
	defer done()

	for _, t := range st.txs {
		if t.ID != id {
			continue
		}
		if t.Status != models.TxPending {
			return fmt.Errorf("transaction %d is not pending: %w", id, models.ErrInvalidState)
		}
		t.Status = status
		t.CompletedAt = &at
		return nil
	}
	return fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
}

func (r *repo) RecordWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	st, done := r.enter()
	defer done()

	found := false
	for _, t := range st.txs {
		if t.Reference == w.Reference && t.Type == models.TxWithdrawal {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("withdrawal entry %s: %w", w.Reference, models.ErrNotFound)
	}
	if _, ok := st.wdrs[w.Reference]; ok {
		return fmt.Errorf("withdrawal %s already recorded: %w", w.Reference, models.ErrConcurrencyConflict)
	}
	w.ID = st.id()
	w.CreatedAt = r.s.now()
	cp := *w
	st.wdrs[w.Reference] = &cp
	return nil
}

func (r *repo) GetWithdrawal(ctx context.Context, ref string) (*models.Withdrawal, error) {
	st, done := r.enter()
	defer done()

	w, ok := st.wdrs[ref]
	if !ok {
		return nil, fmt.Errorf("withdrawal %s: %w", ref, models.ErrNotFound)
	}
	cp := *w
	return &cp, nil
}

// users

func (r *repo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	st, done := r.enter()
	defer done()

	u, ok := st.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *repo) CreateUser(ctx context.Context, user models.User) (int64, error) {
	st, done := r.enter()
	defer done()

	if _, ok := st.users[user.UserId]; ok {
		return 0, fmt.Errorf("user %d already exists: %w", user.UserId, models.ErrConcurrencyConflict)
	}
	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	st.users[user.UserId] = &user
	return user.UserId, nil
}

func (r *repo) ApplyStats(ctx context.Context, userID int64, d models.StatsDelta) error {
	st, done := r.enter()
	defer done()

	u, ok := st.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	u.TotalGamesPlayed += d.GamesPlayed
	u.TotalWins += d.Wins
	u.TotalLosses += d.Losses
	u.TotalTies += d.Ties
	u.TotalEarnings = u.TotalEarnings.Add(d.Earnings)
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *repo) TopPlayers(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	return r.leaderboard(limit, func(a, b *models.User) bool {
		if a.TotalWins != b.TotalWins {
			return a.TotalWins > b.TotalWins
		}
		if a.TotalGamesPlayed != b.TotalGamesPlayed {
			return a.TotalGamesPlayed > b.TotalGamesPlayed
		}
		return a.UserId < b.UserId
	}), nil
}

func (r *repo) TopEarners(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	return r.leaderboard(limit, func(a, b *models.User) bool {
		if !a.TotalEarnings.Equal(b.TotalEarnings) {
			return a.TotalEarnings.GreaterThan(b.TotalEarnings)
		}
		return a.UserId < b.UserId
	}), nil
}

func (r *repo) leaderboard(limit int, less func(a, b *models.User) bool) []*models.LeaderboardEntry {
	st, done := r.enter()
	defer done()

	var users []*models.User
	for _, u := range st.users {
		if u.TotalGamesPlayed > 0 {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return less(users[i], users[j]) })

	out := []*models.LeaderboardEntry{}
	for _, u := range users {
		if len(out) == limit {
			break
		}
		out = append(out, &models.LeaderboardEntry{
			UserId:           u.UserId,
			Name:             u.Name,
			Avatar:           u.Avatar,
			TotalGamesPlayed: u.TotalGamesPlayed,
			TotalWins:        u.TotalWins,
			TotalEarnings:    u.TotalEarnings,
		})
	}
	return out
}
