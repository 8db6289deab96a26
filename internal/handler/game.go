package handler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"dice-casino-bot/internal/game"
	"dice-casino-bot/internal/ledger"
	"dice-casino-bot/internal/model"
)

// DiceAnimation is how long Telegram animates a thrown die.
const DiceAnimation = 3 * time.Second

// GameHandler handles the in-chat game flow: game, choice, bet, roll.
type GameHandler struct {
	ledger    *ledger.Ledger
	registry  *game.Registry
	resolver  *game.Resolver
	channel   *ResultsChannel
	bets      []decimal.Decimal
	asset     string
	animation time.Duration
	// dice overrides the chat die; nil throws it through c.Bot().
	dice func(c tele.Context, chat *tele.Chat) game.Roller
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(
	l *ledger.Ledger,
	registry *game.Registry,
	resolver *game.Resolver,
	channel *ResultsChannel,
	bets []decimal.Decimal,
	asset string,
) *GameHandler {
	return &GameHandler{
		ledger:    l,
		registry:  registry,
		resolver:  resolver,
		channel:   channel,
		bets:      bets,
		asset:     asset,
		animation: DiceAnimation,
	}
}

// HandlePlay shows the game menu.
func (h *GameHandler) HandlePlay(c tele.Context) error {
	return editOrSend(c, "🎮 Выберите режим игры:", GameMenu(h.registry.List()))
}

// HandleGame shows the choices of one game. args: game type.
func (h *GameHandler) HandleGame(c tele.Context, args []string) error {
	g, ok := h.lookup(args)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Неизвестный режим игры", ShowAlert: true})
	}
	return editOrSend(c, g.Name()+"\n\n"+g.Description()+"\n\nВаш выбор:", ChoiceMenu(g))
}

// HandleChoice shows the bet amounts. args: game type, choice.
func (h *GameHandler) HandleChoice(c tele.Context, args []string) error {
	g, ok := h.lookup(args)
	if !ok || len(args) < 2 || !game.ValidChoice(g, model.BetChoice(args[1])) {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Неверный выбор", ShowAlert: true})
	}
	choice := model.BetChoice(args[1])

	sender := c.Sender()
	balance := decimal.Zero
	if sender != nil {
		balance = h.ledger.Balance(model.UserID(sender.ID))
	}

	text := g.Name() + "\n\nСтавка: " + ChoiceLabel(choice) +
		"\nБаланс: " + balance.String() + " " + h.asset + "\n\nВыберите сумму:"
	return editOrSend(c, text, BetMenu(g.Type(), choice, h.bets, h.asset))
}

// HandleBet plays one game. args: game type, choice, amount.
func (h *GameHandler) HandleBet(c tele.Context, args []string) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	g, ok := h.lookup(args)
	if !ok || len(args) < 3 {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Неверная ставка", ShowAlert: true})
	}
	bet, err := ParseAmount(args[2])
	if err != nil || !h.offered(bet) {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Неверная сумма ставки", ShowAlert: true})
	}

	ctx := context.Background()
	h.ledger.EnsureAccount(ctx, model.UserID(sender.ID), usernameOf(sender))
	_ = c.Respond(&tele.CallbackResponse{Text: "🎲 Бросаем кубик..."})

	res, err := h.resolver.Play(ctx, game.PlayRequest{
		Game:   g,
		UserID: model.UserID(sender.ID),
		Choice: model.BetChoice(args[1]),
		Bet:    bet,
		Roller: h.roller(c, chat),
	})
	if err != nil {
		return c.Send(playErrorText(err))
	}

	// Let the die finish rolling before revealing the result.
	time.Sleep(h.animation)

	if err := c.Send(FormatGameResult(res, h.asset), BackMenu()); err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to send game result")
	}
	h.channel.Post(FormatChannelResult(res, DisplayName(sender), h.asset))
	return nil
}

func (h *GameHandler) roller(c tele.Context, chat *tele.Chat) game.Roller {
	if h.dice != nil {
		return h.dice(c, chat)
	}
	return ChatDice(c.Bot(), chat)
}

// offered reports whether amount is one of the configured bet buttons.
// Callback data comes from the client and is not trusted.
func (h *GameHandler) offered(amount decimal.Decimal) bool {
	for _, b := range h.bets {
		if b.Equal(amount) {
			return true
		}
	}
	return false
}

func (h *GameHandler) lookup(args []string) (game.Game, bool) {
	if len(args) == 0 {
		return nil, false
	}
	return h.registry.Get(model.GameType(args[0]))
}

func playErrorText(err error) string {
	switch {
	case errors.Is(err, game.ErrGameInProgress):
		return "⏳ Дождитесь окончания предыдущей игры."
	case errors.Is(err, game.ErrInvalidBet), errors.Is(err, game.ErrInvalidChoice):
		return "❌ Неверная ставка."
	default:
		return "❌ Не удалось бросить кубик. Ставка возвращена на баланс."
	}
}
