package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dice-casino-bot/internal/game"
	"dice-casino-bot/internal/game/evenodd"
	"dice-casino-bot/internal/game/higherlower"
	"dice-casino-bot/internal/model"
)

type noChoices struct{ *evenodd.Game }

func (noChoices) Choices() []model.BetChoice { return nil }

func TestRegistry(t *testing.T) {
	r, err := game.NewRegistry(higherlower.New(), evenodd.New())
	require.NoError(t, err)
	assert.Equal(t, 2, r.Count())

	g, ok := r.Get(model.GameEvenOdd)
	require.True(t, ok)
	assert.Equal(t, model.GameEvenOdd, g.Type())

	_, ok = r.Get(model.GameBowling)
	assert.False(t, ok)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, model.GameEvenOdd, list[0].Type())
	assert.Equal(t, model.GameHigherLower, list[1].Type())
}

func TestRegistry_RejectsInvalidGames(t *testing.T) {
	r, err := game.NewRegistry()
	require.NoError(t, err)

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(noChoices{evenodd.New()}))
	assert.Equal(t, 0, r.Count())
}

func TestValidChoice(t *testing.T) {
	assert.True(t, game.ValidChoice(evenodd.New(), model.ChoiceOdd))
	assert.False(t, game.ValidChoice(evenodd.New(), model.ChoiceLower))
	assert.False(t, game.ValidChoice(higherlower.New(), model.ChoiceUnknown))
}
