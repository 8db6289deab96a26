// Package game defines the single-die betting games and the resolver that
// settles a bet against the ledger.
package game

import "dice-casino-bot/internal/model"

// Game maps a die value to the outcome a player can bet on.
// Adding a game only requires implementing this interface.
type Game interface {
	// Name returns the display name shown in menus.
	Name() string

	// Type returns the identifier used in callbacks, statistics and comments.
	Type() model.GameType

	// Description returns a short rules summary.
	Description() string

	// Choices returns the outcomes a player may declare.
	Choices() []model.BetChoice

	// Outcome returns the winning choice for a die value in [1,6].
	Outcome(die int) model.BetChoice
}

// ValidChoice reports whether choice can be declared for g.
func ValidChoice(g Game, choice model.BetChoice) bool {
	for _, c := range g.Choices() {
		if c == choice {
			return true
		}
	}
	return false
}
