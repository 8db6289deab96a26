// Package higherlower implements the higher/lower die game.
package higherlower

import "dice-casino-bot/internal/model"

// Threshold splits the die: values above it are higher.
const Threshold = 3

// Game pays when the player guesses whether the die lands above 3.
type Game struct{}

// New creates the higher/lower game.
func New() *Game {
	return &Game{}
}

// Name returns the game's display name.
func (g *Game) Name() string {
	return "Больше / Меньше"
}

// Type returns the game type.
func (g *Game) Type() model.GameType {
	return model.GameHigherLower
}

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Больше: 4, 5, 6. Меньше: 1, 2, 3. Выигрыш x1.5."
}

// Choices returns the declarable outcomes.
func (g *Game) Choices() []model.BetChoice {
	return []model.BetChoice{model.ChoiceHigher, model.ChoiceLower}
}

// Outcome returns higher for 4..6 and lower for 1..3.
func (g *Game) Outcome(die int) model.BetChoice {
	if die > Threshold {
		return model.ChoiceHigher
	}
	return model.ChoiceLower
}
