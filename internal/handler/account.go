// Package handler provides Telegram bot command and callback handlers.
package handler

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"dice-casino-bot/internal/ledger"
	"dice-casino-bot/internal/model"
)

// AccountHandler handles the menu and profile screens.
type AccountHandler struct {
	ledger *ledger.Ledger
	asset  string
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(l *ledger.Ledger, asset string) *AccountHandler {
	return &AccountHandler{ledger: l, asset: asset}
}

// HandleStart handles the /start command.
// The account is created on first contact with a zero balance.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	_, created := h.ledger.EnsureAccount(context.Background(), model.UserID(sender.ID), usernameOf(sender))
	if created {
		log.Info().Int64("user_id", sender.ID).Str("username", sender.Username).Msg("New player registered")
	}

	return c.Send(WelcomeText, MainMenu())
}

// HandleHelp handles the /help command.
func (h *AccountHandler) HandleHelp(c tele.Context) error {
	return c.Send(HelpText, MainMenu())
}

// HandleProfile shows the profile screen.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acc, _ := h.ledger.EnsureAccount(context.Background(), model.UserID(sender.ID), usernameOf(sender))
	return editOrSend(c, FormatProfile(acc, h.asset), BackMenu())
}

// HandleBack returns to the main menu.
func (h *AccountHandler) HandleBack(c tele.Context) error {
	return editOrSend(c, WelcomeText, MainMenu())
}

// usernameOf prefers the Telegram username, then the first name.
func usernameOf(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "Anonymous"
}

// editOrSend edits the message a callback came from, or sends a new one.
func editOrSend(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if c.Callback() != nil && c.Message() != nil {
		_ = c.Respond()
		err := c.Edit(text, markup)
		if err == nil {
			return nil
		}
		log.Debug().Err(err).Msg("Failed to edit message, sending a new one")
	}
	return c.Send(text, markup)
}
