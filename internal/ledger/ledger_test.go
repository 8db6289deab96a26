package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dice-casino-bot/internal/model"
	"dice-casino-bot/internal/repository"
)

var testNow = time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLedger_BalanceOfAbsentAccountIsZero(t *testing.T) {
	l := New(NewMemoryStore(), WithClock(fixedClock))

	assert.True(t, l.Balance(1).IsZero())
	_, ok := l.Get(1)
	assert.False(t, ok)
}

func TestLedger_AdjustBalance(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		delta  string
		expect string
	}{
		{"credit", "0", "50", "50"},
		{"debit within balance", "100", "-30", "70"},
		{"debit to exactly zero", "25", "-25", "0"},
		{"overdraw clamps at zero", "10", "-20", "0"},
		{"fractional credit", "0.3", "0.1", "0.4"},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(model.Account{UserID: 5, Balance: dec(tt.start)})
			l := New(store, WithClock(fixedClock))
			l.Load(ctx)

			got := l.AdjustBalance(ctx, 5, dec(tt.delta))
			assert.True(t, dec(tt.expect).Equal(got), "got %s want %s", got, tt.expect)
			assert.True(t, dec(tt.expect).Equal(l.Balance(5)))

			acc, ok := l.Get(5)
			require.True(t, ok)
			assert.Equal(t, testNow, acc.LastActivity)
			assert.Equal(t, 1, store.Saves())
		})
	}
}

func TestLedger_AdjustBalanceCreatesAbsentAccount(t *testing.T) {
	ctx := context.Background()
	l := New(NewMemoryStore(), WithClock(fixedClock))

	got := l.AdjustBalance(ctx, 99, dec("-5"))
	assert.True(t, got.IsZero())

	acc, ok := l.Get(99)
	require.True(t, ok)
	assert.Equal(t, testNow, acc.RegistrationDate)
	assert.Equal(t, 0, acc.GamesPlayed)
}

func TestLedger_EnsureAccount(t *testing.T) {
	ctx := context.Background()
	l := New(NewMemoryStore(), WithClock(fixedClock))

	acc, created := l.EnsureAccount(ctx, 10, "alice")
	assert.True(t, created)
	assert.Equal(t, "alice", acc.Username)
	assert.True(t, acc.Balance.IsZero())
	assert.Nil(t, acc.FavoriteGame)
	assert.Equal(t, testNow, acc.RegistrationDate)

	l.AdjustBalance(ctx, 10, dec("3"))

	acc, created = l.EnsureAccount(ctx, 10, "alice_renamed")
	assert.False(t, created)
	assert.Equal(t, "alice_renamed", acc.Username)
	assert.True(t, dec("3").Equal(acc.Balance))

	acc, _ = l.EnsureAccount(ctx, 10, "")
	assert.Equal(t, "alice_renamed", acc.Username)
}

func TestLedger_UpsertStampsActivity(t *testing.T) {
	ctx := context.Background()
	l := New(NewMemoryStore(), WithClock(fixedClock))

	fav := model.GameHigherLower
	l.Upsert(ctx, model.Account{
		UserID:       3,
		Username:     "bob",
		Balance:      dec("7"),
		FavoriteGame: &fav,
		LastActivity: testNow.Add(-48 * time.Hour),
	})

	acc, ok := l.Get(3)
	require.True(t, ok)
	assert.Equal(t, testNow, acc.LastActivity)
	assert.Equal(t, "bob", acc.Username)
	require.NotNil(t, acc.FavoriteGame)
	assert.Equal(t, model.GameHigherLower, *acc.FavoriteGame)
}

func TestLedger_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	l := New(NewMemoryStore(), WithClock(fixedClock))
	l.RecordGame(ctx, 4, model.GameEvenOdd)

	acc, _ := l.Get(4)
	acc.Balance = dec("1000")
	*acc.FavoriteGame = model.GameHigherLower

	fresh, _ := l.Get(4)
	assert.True(t, fresh.Balance.IsZero())
	assert.Equal(t, model.GameEvenOdd, *fresh.FavoriteGame)
}

func TestLedger_RecordGame(t *testing.T) {
	ctx := context.Background()
	l := New(NewMemoryStore(), WithClock(fixedClock))

	l.RecordGame(ctx, 8, model.GameHigherLower)
	acc, _ := l.Get(8)
	assert.Equal(t, 1, acc.GamesPlayed)
	assert.Equal(t, 1, acc.HigherLowerGames)
	require.NotNil(t, acc.FavoriteGame)
	assert.Equal(t, model.GameHigherLower, *acc.FavoriteGame)

	l.RecordGame(ctx, 8, model.GameEvenOdd)
	l.RecordGame(ctx, 8, model.GameEvenOdd)
	acc, _ = l.Get(8)
	assert.Equal(t, 3, acc.GamesPlayed)
	assert.Equal(t, 2, acc.EvenOddGames)
	assert.Equal(t, model.GameEvenOdd, *acc.FavoriteGame)
}

func TestLedger_LoadFailureStartsEmpty(t *testing.T) {
	store := NewMemoryStore(model.Account{UserID: 1, Balance: dec("5")})
	store.FailWith(fmt.Errorf("read: %w", repository.ErrMalformedStorage))

	l := New(store)
	l.Load(context.Background())
	assert.Equal(t, 0, l.Len())
}

func TestLedger_PersistFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := New(store, WithClock(fixedClock))

	store.FailWith(errors.New("disk full"))
	got := l.AdjustBalance(ctx, 1, dec("5"))
	assert.True(t, dec("5").Equal(got))
	assert.True(t, dec("5").Equal(l.Balance(1)))
	assert.Error(t, l.Persist(ctx))

	store.FailWith(nil)
	require.NoError(t, l.Persist(ctx))
}

func TestLedger_FileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := repository.NewFileAccountStore(filepath.Join(t.TempDir(), "data", "users.json"))

	l := New(store, WithClock(fixedClock))
	l.Load(ctx)
	l.EnsureAccount(ctx, 1, "alice")
	l.AdjustBalance(ctx, 1, dec("12.75"))
	l.RecordGame(ctx, 1, model.GameEvenOdd)
	l.EnsureAccount(ctx, 2, "bob")

	reloaded := New(store, WithClock(fixedClock))
	reloaded.Load(ctx)
	require.Equal(t, 2, reloaded.Len())

	for _, id := range []model.UserID{1, 2} {
		want, _ := l.Get(id)
		got, ok := reloaded.Get(id)
		require.True(t, ok)
		assert.Equal(t, want.Username, got.Username)
		assert.True(t, want.Balance.Equal(got.Balance))
		assert.Equal(t, want.GamesPlayed, got.GamesPlayed)
		assert.Equal(t, want.EvenOddGames, got.EvenOddGames)
		assert.Equal(t, want.FavoriteGame, got.FavoriteGame)
		assert.True(t, want.RegistrationDate.Equal(got.RegistrationDate))
		assert.True(t, want.LastActivity.Equal(got.LastActivity))
	}
}
