package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/draught-services/internal/draughts"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/store"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var two = decimal.NewFromInt(2)

// Settlement pays out finished games. It only touches balances through the wallet ledger.
type Settlement struct {
	rate decimal.Decimal
}

func NewSettlement(commissionRate decimal.Decimal) *Settlement {
	return &Settlement{rate: commissionRate}
}

// Split returns the pot, platform commission and prize for a stake matched by both players.
func (s *Settlement) Split(bet decimal.Decimal) (pot, commission, prize decimal.Decimal) {
	pot = bet.Mul(two)
	commission = pot.Mul(s.rate).Round(2)
	prize = pot.Sub(commission)
	return pot, commission, prize
}

// TieShares splits the prize for a tie. The second share takes any odd cent.
func TieShares(prize decimal.Decimal) (first, second decimal.Decimal) {
	first = prize.Div(two).Truncate(2)
	return first, prize.Sub(first)
}

// Settle posts the ledger entries for outcome and marks g completed. g must
// be locked by tx and still in progress; the caller persists g afterwards.
func (s *Settlement) Settle(ctx context.Context, tx store.Repos, g *models.Game, outcome draughts.Outcome, now time.Time) error {
	if g.Status != models.GameInProgress {
		return fmt.Errorf("%w: game %d is %s", models.ErrInvalidState, g.ID, g.Status)
	}
	if g.OpponentID == nil {
		return fmt.Errorf("game %d has no opponent", g.ID)
	}

	var err error
	switch outcome.Kind {
	case draughts.Win:
		err = s.settleWin(ctx, tx, g, outcome.Winner, now)
	case draughts.Tie:
		err = s.settleTie(ctx, tx, g, now)
	default:
		return fmt.Errorf("game %d: outcome is not terminal", g.ID)
	}
	if err != nil {
		return err
	}

	if err := s.postCommission(ctx, tx, g, now); err != nil {
		return err
	}

	g.Status = models.GameCompleted
	g.CompletedAt = &now
	g.UpdatedAt = now

	log.WithFields(log.Fields{
		"game":       g.Code,
		"result":     g.Result,
		"prize":      g.PrizeAmount.StringFixed(2),
		"commission": g.AdminCommission.StringFixed(2),
	}).Info("game settled")
	return nil
}

func (s *Settlement) settleWin(ctx context.Context, tx store.Repos, g *models.Game, winner draughts.Color, now time.Time) error {
	winnerID, ok := g.PlayerFor(winner)
	if !ok {
		return fmt.Errorf("game %d has no %s player", g.ID, winner)
	}
	loserID, _ := g.PlayerFor(winner.Opponent())

	// user rows are always touched in id order so concurrent settlements cannot deadlock
	for _, uid := range ordered(winnerID, loserID) {
		if uid != winnerID {
			if err := tx.Users().ApplyStats(ctx, uid, models.StatsDelta{GamesPlayed: 1, Losses: 1}); err != nil {
				return err
			}
			continue
		}

		if err := s.payout(ctx, tx, g, uid, g.PrizeAmount, fmt.Sprintf("Won game %s", g.Code), now); err != nil {
			return err
		}
		delta := models.StatsDelta{GamesPlayed: 1, Wins: 1, Earnings: g.PrizeAmount.Sub(g.BetAmount)}
		if err := tx.Users().ApplyStats(ctx, uid, delta); err != nil {
			return err
		}
	}

	g.Result = models.ResultWin
	g.WinnerID = &winnerID
	return nil
}

func (s *Settlement) settleTie(ctx context.Context, tx store.Repos, g *models.Game, now time.Time) error {
	first, second := TieShares(g.PrizeAmount)
	shares := map[int64]decimal.Decimal{
		g.CreatorID:   first,
		*g.OpponentID: second,
	}

	for _, uid := range ordered(g.CreatorID, *g.OpponentID) {
		if err := s.payout(ctx, tx, g, uid, shares[uid], fmt.Sprintf("Tie in game %s", g.Code), now); err != nil {
			return err
		}
		if err := tx.Users().ApplyStats(ctx, uid, models.StatsDelta{GamesPlayed: 1, Ties: 1}); err != nil {
			return err
		}
	}

	g.Result = models.ResultTie
	g.WinnerID = nil
	return nil
}

func (s *Settlement) payout(ctx context.Context, tx store.Repos, g *models.Game, userID int64, amount decimal.Decimal, desc string, now time.Time) error {
	if err := tx.Wallets().Credit(ctx, userID, amount); err != nil {
		return err
	}

	return tx.Wallets().RecordTransaction(ctx, &models.Transaction{
		UserID:      &userID,
		GameID:      &g.ID,
		Type:        models.TxBetWon,
		Amount:      amount,
		Status:      models.TxCompleted,
		Description: desc,
		CompletedAt: &now,
	})
}

func (s *Settlement) postCommission(ctx context.Context, tx store.Repos, g *models.Game, now time.Time) error {
	return tx.Wallets().RecordTransaction(ctx, &models.Transaction{
		GameID:      &g.ID,
		Type:        models.TxCommission,
		Amount:      g.AdminCommission,
		Status:      models.TxCompleted,
		Description: fmt.Sprintf("Admin commission from game %s", g.Code),
		CompletedAt: &now,
	})
}

func ordered(a, b int64) []int64 {
	if a < b {
		return []int64{a, b}
	}
	return []int64{b, a}
}
