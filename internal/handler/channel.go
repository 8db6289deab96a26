package handler

import (
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"dice-casino-bot/internal/game"
)

// ResultsChannel posts game results and bet invitations to the public
// results channel. A zero channel id disables posting.
type ResultsChannel struct {
	sender Sender
	chatID int64
	url    string
}

// NewResultsChannel creates a ResultsChannel.
func NewResultsChannel(s Sender, chatID int64, url string) *ResultsChannel {
	return &ResultsChannel{sender: s, chatID: chatID, url: url}
}

// Enabled reports whether a channel is configured.
func (r *ResultsChannel) Enabled() bool {
	return r != nil && r.chatID != 0 && r.sender != nil
}

// URL returns the public link of the channel, if configured.
func (r *ResultsChannel) URL() string {
	if r == nil {
		return ""
	}
	return r.url
}

// Post sends a message to the channel. Failures are logged, not returned.
func (r *ResultsChannel) Post(what interface{}, opts ...interface{}) *tele.Message {
	if !r.Enabled() {
		return nil
	}
	msg, err := r.sender.Send(tele.ChatID(r.chatID), what, opts...)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", r.chatID).Msg("Failed to post to results channel")
		return nil
	}
	return msg
}

// Dice returns a roller that throws the die in the channel itself.
func (r *ResultsChannel) Dice() (game.Roller, bool) {
	if !r.Enabled() {
		return nil, false
	}
	return ChatDice(r.sender, tele.ChatID(r.chatID)), true
}
