package game_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"dice-casino-bot/internal/game"
	"dice-casino-bot/internal/game/evenodd"
	"dice-casino-bot/internal/game/higherlower"
	"dice-casino-bot/internal/ledger"
	"dice-casino-bot/internal/model"
	"dice-casino-bot/internal/pkg/lock"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newLedger(t *testing.T, id model.UserID, balance string) *ledger.Ledger {
	t.Helper()
	l := ledger.New(ledger.NewMemoryStore(model.Account{UserID: id, Balance: dec(balance)}),
		ledger.WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }))
	l.Load(context.Background())
	return l
}

func TestCalculatePayout(t *testing.T) {
	tests := []struct {
		bet    string
		payout string
	}{
		{"50", "75"},
		{"100", "150"},
		{"200", "300"},
		{"1", "1"},
		{"3", "4"},
		{"0.5", "0"},
		{"2.9", "4"},
	}
	for _, tt := range tests {
		t.Run(tt.bet, func(t *testing.T) {
			assert.True(t, dec(tt.payout).Equal(game.CalculatePayout(dec(tt.bet))))
		})
	}
}

func TestResolver_EvenOddWin(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, 1, "100")
	r := game.NewResolver(l, nil)

	res, err := r.Play(ctx, game.PlayRequest{
		Game:   evenodd.New(),
		UserID: 1,
		Choice: model.ChoiceEven,
		Bet:    dec("50"),
		Roller: game.Fixed(4),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Die)
	assert.Equal(t, model.ChoiceEven, res.Outcome)
	assert.True(t, res.Win)
	assert.True(t, dec("50").Equal(res.Debited))
	assert.True(t, dec("75").Equal(res.Payout))
	assert.True(t, dec("75").Equal(res.Net))
	assert.True(t, dec("125").Equal(res.Balance))
	assert.True(t, dec("125").Equal(l.Balance(1)))

	acc, _ := l.Get(1)
	assert.Equal(t, 1, acc.GamesPlayed)
	assert.Equal(t, 1, acc.EvenOddGames)
	assert.Equal(t, 0, acc.HigherLowerGames)
}

func TestResolver_HigherLowerLoss(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, 1, "100")
	r := game.NewResolver(l, nil)

	res, err := r.Play(ctx, game.PlayRequest{
		Game:   higherlower.New(),
		UserID: 1,
		Choice: model.ChoiceLower,
		Bet:    dec("50"),
		Roller: game.Fixed(5),
	})
	require.NoError(t, err)

	assert.Equal(t, model.ChoiceHigher, res.Outcome)
	assert.False(t, res.Win)
	assert.True(t, res.Payout.IsZero())
	assert.True(t, dec("-50").Equal(res.Net))
	assert.True(t, dec("50").Equal(l.Balance(1)))

	acc, _ := l.Get(1)
	assert.Equal(t, 1, acc.HigherLowerGames)
	require.NotNil(t, acc.FavoriteGame)
	assert.Equal(t, model.GameHigherLower, *acc.FavoriteGame)
}

func TestResolver_ZeroBalancePlaysForFree(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, 1, "0")
	r := game.NewResolver(l, nil)

	lost, err := r.Play(ctx, game.PlayRequest{
		Game: evenodd.New(), UserID: 1, Choice: model.ChoiceOdd, Bet: dec("100"), Roller: game.Fixed(2),
	})
	require.NoError(t, err)
	assert.False(t, lost.Win)
	assert.True(t, lost.Debited.IsZero())
	assert.True(t, l.Balance(1).IsZero())

	won, err := r.Play(ctx, game.PlayRequest{
		Game: evenodd.New(), UserID: 1, Choice: model.ChoiceOdd, Bet: dec("100"), Roller: game.Fixed(3),
	})
	require.NoError(t, err)
	assert.True(t, won.Win)
	assert.True(t, dec("150").Equal(l.Balance(1)))
}

func TestResolver_RejectsBadRequests(t *testing.T) {
	l := newLedger(t, 1, "100")
	r := game.NewResolver(l, nil)

	tests := []struct {
		name string
		req  game.PlayRequest
		err  error
	}{
		{"zero bet", game.PlayRequest{Game: evenodd.New(), UserID: 1, Choice: model.ChoiceEven, Bet: decimal.Zero, Roller: game.Fixed(1)}, game.ErrInvalidBet},
		{"negative bet", game.PlayRequest{Game: evenodd.New(), UserID: 1, Choice: model.ChoiceEven, Bet: dec("-5"), Roller: game.Fixed(1)}, game.ErrInvalidBet},
		{"wrong choice", game.PlayRequest{Game: evenodd.New(), UserID: 1, Choice: model.ChoiceHigher, Bet: dec("5"), Roller: game.Fixed(1)}, game.ErrInvalidChoice},
		{"absent choice", game.PlayRequest{Game: higherlower.New(), UserID: 1, Choice: model.ChoiceNone, Bet: dec("5"), Roller: game.Fixed(1)}, game.ErrInvalidChoice},
		{"no game", game.PlayRequest{UserID: 1, Choice: model.ChoiceEven, Bet: dec("5"), Roller: game.Fixed(1)}, game.ErrMissingGame},
		{"no roller", game.PlayRequest{Game: evenodd.New(), UserID: 1, Choice: model.ChoiceEven, Bet: dec("5")}, game.ErrMissingRoller},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Play(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.err)
			assert.True(t, dec("100").Equal(l.Balance(1)))
		})
	}
}

func TestResolver_RollFailureReturnsStake(t *testing.T) {
	rollers := map[string]game.Roller{
		"roll error": game.RollerFunc(func(context.Context) (int, error) {
			return 0, errors.New("telegram unavailable")
		}),
		"out of range": game.Fixed(7),
	}

	for name, roller := range rollers {
		t.Run(name, func(t *testing.T) {
			l := newLedger(t, 1, "30")
			r := game.NewResolver(l, nil)

			_, err := r.Play(context.Background(), game.PlayRequest{
				Game: evenodd.New(), UserID: 1, Choice: model.ChoiceEven, Bet: dec("50"), Roller: roller,
			})
			require.Error(t, err)
			assert.True(t, dec("30").Equal(l.Balance(1)))

			acc, _ := l.Get(1)
			assert.Equal(t, 0, acc.GamesPlayed)
		})
	}
}

func TestResolver_BusyUser(t *testing.T) {
	l := newLedger(t, 1, "100")
	locks := lock.New[model.UserID]()
	r := game.NewResolver(l, locks)

	locks.Lock(1)
	defer locks.Unlock(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Play(ctx, game.PlayRequest{
		Game: evenodd.New(), UserID: 1, Choice: model.ChoiceEven, Bet: dec("5"), Roller: game.Fixed(2),
	})
	assert.ErrorIs(t, err, game.ErrGameInProgress)
	assert.True(t, dec("100").Equal(l.Balance(1)))
}

func TestRandomRollerRange(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		v, err := game.RandomRoller{}.Roll(context.Background())
		require.NoError(t, err)
		require.GreaterOrEqual(t, v, game.MinDie)
		require.LessOrEqual(t, v, game.MaxDie)
		seen[v] = true
	}
	assert.Len(t, seen, 6)
}

// TestPlayBalanceProperty tests that for any starting balance, bet, choice and
// die, the final balance is max(0, start-bet) plus floor(bet*1.5) on a win.
func TestPlayBalanceProperty(t *testing.T) {
	games := []game.Game{evenodd.New(), higherlower.New()}

	rapid.Check(t, func(t *rapid.T) {
		g := rapid.SampledFrom(games).Draw(t, "game")
		choice := rapid.SampledFrom(g.Choices()).Draw(t, "choice")
		die := rapid.IntRange(1, 6).Draw(t, "die")
		start := decimal.NewFromInt(rapid.Int64Range(0, 10_000).Draw(t, "start"))
		bet := decimal.NewFromInt(rapid.Int64Range(1, 10_000).Draw(t, "bet"))

		l := ledger.New(ledger.NewMemoryStore(model.Account{UserID: 1, Balance: start}))
		l.Load(context.Background())
		r := game.NewResolver(l, nil)

		res, err := r.Play(context.Background(), game.PlayRequest{
			Game: g, UserID: 1, Choice: choice, Bet: bet, Roller: game.Fixed(die),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := decimal.Max(decimal.Zero, start.Sub(bet))
		if g.Outcome(die) == choice {
			expected = expected.Add(game.CalculatePayout(bet))
		}
		if !l.Balance(1).Equal(expected) || !res.Balance.Equal(expected) {
			t.Fatalf("expected %s, ledger %s, result %s", expected, l.Balance(1), res.Balance)
		}
		if res.Win != (g.Outcome(die) == choice) {
			t.Fatalf("win flag mismatch for die %d choice %s", die, choice)
		}
	})
}
