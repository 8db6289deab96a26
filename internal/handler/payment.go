package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"dice-casino-bot/internal/ledger"
	"dice-casino-bot/internal/model"
	"dice-casino-bot/internal/settlement"
)

const (
	historyLimit = 10
	// providerTimeout bounds one round trip to the payment provider from a handler.
	providerTimeout = 30 * time.Second
)

// testDepositAmount is the amount of the invoice created by the API self-test.
var testDepositAmount = decimal.RequireFromString("0.1")

// PaymentHandler handles deposits, withdrawals and payment-based bets.
type PaymentHandler struct {
	ledger     *ledger.Ledger
	engine     *settlement.Engine
	channel    *ResultsChannel
	channelBet decimal.Decimal
}

// NewPaymentHandler creates a new PaymentHandler. channelBet is the amount of
// the invoice posted for a bet through the results channel.
func NewPaymentHandler(l *ledger.Ledger, engine *settlement.Engine, channel *ResultsChannel, channelBet decimal.Decimal) *PaymentHandler {
	return &PaymentHandler{
		ledger:     l,
		engine:     engine,
		channel:    channel,
		channelBet: channelBet,
	}
}

// HandleDeposit handles /deposit <amount>.
func (h *PaymentHandler) HandleDeposit(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Использование: /deposit <сумма>\nНапример: /deposit 5")
	}
	amount, err := ParseAmount(args[0])
	if err != nil {
		return c.Reply("❌ Введите корректную сумму")
	}

	ctx, cancel := context.WithTimeout(context.Background(), providerTimeout)
	defer cancel()

	h.ledger.EnsureAccount(ctx, model.UserID(sender.ID), usernameOf(sender))
	res := h.engine.CreateDeposit(ctx, model.UserID(sender.ID), amount)
	text := FormatDeposit(res, amount, h.engine.Asset())
	if res.PayURL == "" {
		return c.Reply(text)
	}
	return c.Reply(text, PayMenu("💰 Оплатить", res.PayURL, false))
}

// HandleWithdraw handles /withdraw <amount> <wallet|cb:<user_id>>.
func (h *PaymentHandler) HandleWithdraw(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	amount, dest, err := ParseWithdrawArgs(c.Args())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			return c.Reply("❌ Введите корректную сумму")
		case errors.Is(err, ErrInvalidDestination):
			return c.Reply("❌ Укажите адрес кошелька или cb:<id пользователя CryptoBot>")
		default:
			return c.Reply("❌ Использование: /withdraw <сумма> <кошелёк|cb:id>\nНапример: /withdraw 5 cb:123456")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), providerTimeout)
	defer cancel()

	h.ledger.EnsureAccount(ctx, model.UserID(sender.ID), usernameOf(sender))
	res := h.engine.RequestWithdrawal(ctx, model.UserID(sender.ID), amount, dest)
	return c.Reply(FormatWithdrawal(res, h.engine.Asset()))
}

// HandleHistory handles /history.
func (h *PaymentHandler) HandleHistory(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	return c.Reply(FormatHistory(h.engine.History(model.UserID(sender.ID), historyLimit)))
}

// HandleInvoice handles /invoice <id>.
func (h *PaymentHandler) HandleInvoice(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Использование: /invoice <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return c.Reply("❌ Неверный номер счёта")
	}

	ctx, cancel := context.WithTimeout(context.Background(), providerTimeout)
	defer cancel()

	return c.Reply(FormatInvoice(h.engine.CheckInvoice(ctx, id)))
}

// HandleTest handles /test and the "Тест API" button: a getMe call, then a
// small invoice the tester can pay to exercise the whole flow.
func (h *PaymentHandler) HandleTest(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), providerTimeout)
	defer cancel()

	conn := h.engine.TestConnection(ctx)
	if !conn.Success {
		return editOrSend(c, FormatConnection(conn), BackMenu())
	}

	text := FormatConnection(conn)
	dep := h.engine.CreateDeposit(ctx, model.UserID(sender.ID), testDepositAmount)
	if !dep.Success {
		return editOrSend(c, text+"\n\n❌ Ошибка при создании платежного URL:\n\n"+dep.Message, BackMenu())
	}

	text += "\n\n✅ Тестовый платежный URL создан успешно!\n\nСумма: " +
		testDepositAmount.String() + " " + h.engine.Asset()
	return editOrSend(c, text, PayMenu("Оплатить тестовый счет", dep.PayURL, false))
}

// HandleInstruction shows how to bet through a payment.
func (h *PaymentHandler) HandleInstruction(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	// Channel posts are shared; answer with an alert instead of editing.
	if chat := c.Chat(); chat != nil && chat.Type == tele.ChatChannel {
		return c.Respond(&tele.CallbackResponse{Text: CommentHint, ShowAlert: true})
	}

	payURL := h.betInvoice(model.UserID(sender.ID))
	if payURL == "" {
		return editOrSend(c, InstructionText(h.engine.Asset()), BackMenu())
	}
	return editOrSend(c, InstructionText(h.engine.Asset()), PayMenu("💰 Сделать ставку", payURL, false))
}

// HandleChannelBet posts a bet invitation with a pay button to the results
// channel and points the player there.
func (h *PaymentHandler) HandleChannelBet(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if !h.channel.Enabled() {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Канал для ставок не настроен", ShowAlert: true})
	}

	payURL := h.betInvoice(model.UserID(sender.ID))
	if payURL == "" {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Не удалось создать счёт", ShowAlert: true})
	}

	posted := h.channel.Post(
		BetInstructions(DisplayName(sender), h.channelBet, h.engine.Asset()),
		PayMenu("💰 Сделать ставку", payURL, true),
	)
	if posted == nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Не удалось отправить ставку в канал", ShowAlert: true})
	}

	text := "💎 Хочешь испытать удачу?\n\n💰 Сообщение со ставкой отправлено в канал! Нажмите на кнопку для перехода в канал и оплаты ставки."
	if h.channel.URL() == "" {
		return editOrSend(c, text, BackMenu())
	}
	return editOrSend(c, text, ChannelMenu(h.channel.URL()))
}

// betInvoice creates an invoice for a bet of the configured channel amount.
// Without a provider the fallback link is returned.
func (h *PaymentHandler) betInvoice(userID model.UserID) string {
	ctx, cancel := context.WithTimeout(context.Background(), providerTimeout)
	defer cancel()

	res := h.engine.CreateDeposit(ctx, userID, h.channelBet)
	if !res.Success {
		log.Warn().Int64("user_id", int64(userID)).Str("kind", string(res.Kind)).Msg("Bet invoice unavailable")
	}
	return res.PayURL
}
