package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"dice-casino-bot/internal/game"
)

// Sender is the part of *tele.Bot used to throw a die.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// ChatDice returns a roller that sends a 🎲 to the chat and reads the value
// Telegram rolled.
func ChatDice(s Sender, to tele.Recipient) game.Roller {
	return game.RollerFunc(func(ctx context.Context) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		msg, err := s.Send(to, tele.Cube)
		if err != nil {
			return 0, fmt.Errorf("failed to send dice: %w", err)
		}
		if msg == nil || msg.Dice == nil {
			return 0, fmt.Errorf("telegram returned no dice value")
		}
		return msg.Dice.Value, nil
	})
}
