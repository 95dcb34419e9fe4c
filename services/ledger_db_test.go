package services

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/models"
)

// newLedger returns a ledger over a private in-memory database.
func newLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection would get its own empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.GormAccount{}))
	return NewLedger(db), db
}

func account(t *testing.T, l *Ledger, id string) models.GormAccount {
	t.Helper()
	acc, err := l.Account(context.Background(), id)
	require.NoError(t, err)
	return acc
}

func TestLedger_SettleWinner(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	balances, err := l.Settle(ctx, engine.Result{Winner: "A", Participants: []string{"A", "B"}, Stake: 10})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": StartingCoins + 10, "B": StartingCoins - 10}, balances)

	a, b := account(t, l, "A"), account(t, l, "B")
	assert.Equal(t, int64(StartingCoins+10), a.Coins)
	assert.Equal(t, 1, a.Wins)
	assert.Zero(t, a.Losses)
	assert.Equal(t, int64(StartingCoins-10), b.Coins)
	assert.Equal(t, 1, b.Losses)

	// accounts are reused, not reopened
	balances, err = l.Settle(ctx, engine.Result{Winner: "B", Participants: []string{"A", "B"}, Stake: 10})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": StartingCoins, "B": StartingCoins}, balances)
	a = account(t, l, "A")
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 1, a.Losses)
}

func TestLedger_SettleDrawAndAbort(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	players := []string{"A", "B"}

	balances, err := l.Settle(ctx, engine.Result{Winner: engine.Draw, Participants: players, Stake: 10})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": StartingCoins, "B": StartingCoins}, balances)
	assert.Equal(t, 1, account(t, l, "A").Draws)

	_, err = l.Settle(ctx, engine.Result{Reason: engine.ReasonAborted, Participants: players, Stake: 10})
	require.NoError(t, err)
	b := account(t, l, "B")
	assert.Equal(t, int64(StartingCoins), b.Coins)
	assert.Equal(t, 1, b.Draws)
	assert.Zero(t, b.Wins+b.Losses)
}

func TestLedger_LoserPaysWhatTheyHave(t *testing.T) {
	l, db := newLedger(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.GormAccount{PlayerID: "B", Coins: 4}).Error)

	balances, err := l.Settle(ctx, engine.Result{Winner: "A", Participants: []string{"A", "B"}, Stake: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(StartingCoins+4), balances["A"])
	assert.Zero(t, balances["B"])
	assert.Zero(t, account(t, l, "B").Coins)
}

func TestLedger_FailedSettleWritesNothing(t *testing.T) {
	l, _ := newLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Settle(ctx, engine.Result{Winner: "A", Participants: []string{"A", "B"}, Stake: 10})
	require.Error(t, err)

	_, err = l.Account(context.Background(), "A")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
