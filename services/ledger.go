// services/ledger.go
package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/models"
)

var ErrAccountNotFound = errors.New("account not found")

// StartingCoins is the balance of an account opened by its first game.
const StartingCoins = 1000

// Ledger settles stakes against player accounts stored with gorm. The
// winner collects every loser's stake; a draw or a game without a winner
// moves no coins.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

var _ engine.Settlement = (*Ledger)(nil)

// Settle applies result in one transaction and returns every
// participant's balance afterwards.
func (l *Ledger) Settle(ctx context.Context, result engine.Result) (map[string]int64, error) {
	balances := make(map[string]int64, len(result.Participants))

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts := make(map[string]*models.GormAccount, len(result.Participants))
		for _, id := range result.Participants {
			var acc models.GormAccount
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where(models.GormAccount{PlayerID: id}).
				Attrs(models.GormAccount{Coins: StartingCoins}).
				FirstOrCreate(&acc).Error
			if err != nil {
				return fmt.Errorf("load account %s: %w", id, err)
			}
			accounts[id] = &acc
			balances[id] = acc.Coins
		}

		deltas := Payouts(result, balances)
		for id, acc := range accounts {
			outcome := models.Outcome(result.Winner, id)
			updates := map[string]any{"coins": gorm.Expr("coins + ?", deltas[id])}
			switch outcome {
			case models.OutcomeWin:
				updates["wins"] = gorm.Expr("wins + 1")
			case models.OutcomeLose:
				updates["losses"] = gorm.Expr("losses + 1")
			case models.OutcomeDraw:
				updates["draws"] = gorm.Expr("draws + 1")
			}
			if err := tx.Model(acc).Updates(updates).Error; err != nil {
				return fmt.Errorf("update account %s: %w", id, err)
			}
			balances[id] += deltas[id]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balances, nil
}

// Account returns a player's account.
func (l *Ledger) Account(ctx context.Context, playerID string) (models.GormAccount, error) {
	var acc models.GormAccount
	err := l.db.WithContext(ctx).Where("player_id = ?", playerID).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return acc, ErrAccountNotFound
	}
	return acc, err
}

// Payouts computes the coin delta of each participant. A loser never pays
// more than their balance, and the winner receives what was actually paid.
func Payouts(result engine.Result, balances map[string]int64) map[string]int64 {
	deltas := make(map[string]int64, len(result.Participants))
	for _, id := range result.Participants {
		deltas[id] = 0
	}
	if result.Stake <= 0 || result.Winner == "" || result.Winner == engine.Draw {
		return deltas
	}
	if _, ok := deltas[result.Winner]; !ok {
		return deltas
	}

	var pot int64
	for _, id := range result.Participants {
		if id == result.Winner {
			continue
		}
		pay := min(result.Stake, max(balances[id], 0))
		deltas[id] = -pay
		pot += pay
	}
	deltas[result.Winner] = pot
	return deltas
}
