// Package payment parses the text attached to incoming payments: the
// player's free-text comment and the bot's hidden metadata string.
package payment

import (
	"strings"

	"dice-casino-bot/internal/model"
)

// Comment markers, matched against lowercased text.
const (
	markerBowling = "бол"
	markerEven    = "чет"
	markerOdd     = "нечет"
	markerHigher  = "больше"
	markerLower   = "меньше"
)

var (
	winWords  = []string{"победа", "выигрыш"}
	loseWords = []string{"проигрыш", "поражение"}
)

// Intent is the game and choice a payer asked for in the payment comment.
// BetChoice is model.ChoiceNone when the game was recognised without a choice.
type Intent struct {
	GameType  model.GameType
	BetChoice model.BetChoice
}

// Unknown is the intent of a comment that names no game.
var Unknown = Intent{GameType: model.GameUnknown, BetChoice: model.ChoiceUnknown}

// Playable reports whether the intent names both a game and a choice.
func (i Intent) Playable() bool {
	return i.GameType != model.GameUnknown &&
		i.BetChoice != model.ChoiceNone &&
		i.BetChoice != model.ChoiceUnknown
}

// ParseComment maps a payment comment to a game intent. The first matching
// rule wins: bowling, then even/odd, then higher/lower.
func ParseComment(text string) Intent {
	c := strings.TrimSpace(strings.ToLower(text))
	if c == "" {
		return Unknown
	}

	switch {
	case strings.Contains(c, markerBowling):
		intent := Intent{GameType: model.GameBowling}
		switch {
		case containsAny(c, winWords):
			intent.BetChoice = model.ChoiceWin
		case containsAny(c, loseWords):
			intent.BetChoice = model.ChoiceLose
		}
		return intent

	case strings.Contains(c, markerEven):
		// "нечет" contains "чет", so only exact comments select a side.
		intent := Intent{GameType: model.GameEvenOdd}
		switch c {
		case markerEven:
			intent.BetChoice = model.ChoiceEven
		case markerOdd:
			intent.BetChoice = model.ChoiceOdd
		}
		return intent

	case strings.Contains(c, markerHigher):
		return Intent{GameType: model.GameHigherLower, BetChoice: model.ChoiceHigher}

	case strings.Contains(c, markerLower):
		return Intent{GameType: model.GameHigherLower, BetChoice: model.ChoiceLower}
	}

	return Unknown
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
