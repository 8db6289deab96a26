package evenodd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dice-casino-bot/internal/model"
)

func TestOutcome(t *testing.T) {
	g := New()
	expected := map[int]model.BetChoice{
		1: model.ChoiceOdd,
		2: model.ChoiceEven,
		3: model.ChoiceOdd,
		4: model.ChoiceEven,
		5: model.ChoiceOdd,
		6: model.ChoiceEven,
	}
	for die, want := range expected {
		assert.Equal(t, want, g.Outcome(die), "die %d", die)
	}
}

func TestMetadata(t *testing.T) {
	g := New()
	assert.Equal(t, model.GameEvenOdd, g.Type())
	assert.ElementsMatch(t, []model.BetChoice{model.ChoiceEven, model.ChoiceOdd}, g.Choices())
	assert.NotEmpty(t, g.Name())
	assert.NotEmpty(t, g.Description())
}
