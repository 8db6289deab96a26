// Package evenodd implements the even/odd die game.
package evenodd

import "dice-casino-bot/internal/model"

// Game pays when the player guesses the parity of the die.
type Game struct{}

// New creates the even/odd game.
func New() *Game {
	return &Game{}
}

// Name returns the game's display name.
func (g *Game) Name() string {
	return "Чет / Нечет"
}

// Type returns the game type.
func (g *Game) Type() model.GameType {
	return model.GameEvenOdd
}

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Угадайте, выпадет чётное или нечётное число на кубике. Выигрыш x1.5."
}

// Choices returns the declarable outcomes.
func (g *Game) Choices() []model.BetChoice {
	return []model.BetChoice{model.ChoiceEven, model.ChoiceOdd}
}

// Outcome returns even for 2, 4, 6 and odd otherwise.
func (g *Game) Outcome(die int) model.BetChoice {
	if die%2 == 0 {
		return model.ChoiceEven
	}
	return model.ChoiceOdd
}
