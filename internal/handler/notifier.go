package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"dice-casino-bot/internal/game"
	"dice-casino-bot/internal/ledger"
	"dice-casino-bot/internal/model"
	"dice-casino-bot/internal/payment"
	"dice-casino-bot/internal/settlement"
)

// PaymentNotifier announces settled payments in the results channel and
// plays the game named in the payment comment with the paid amount as bet.
type PaymentNotifier struct {
	sender    Sender
	ledger    *ledger.Ledger
	registry  *game.Registry
	resolver  *game.Resolver
	channel   *ResultsChannel
	animation time.Duration
}

// NewPaymentNotifier creates a PaymentNotifier. sender is used to message
// the player directly and may be nil.
func NewPaymentNotifier(sender Sender, l *ledger.Ledger, registry *game.Registry, resolver *game.Resolver, channel *ResultsChannel) *PaymentNotifier {
	return &PaymentNotifier{
		sender:    sender,
		ledger:    l,
		registry:  registry,
		resolver:  resolver,
		channel:   channel,
		animation: DiceAnimation,
	}
}

// OnPayment handles one settled payment.
func (n *PaymentNotifier) OnPayment(ctx context.Context, res *settlement.PaymentResult) {
	if res == nil || res.Status != settlement.PaymentSettled {
		return
	}

	player := n.playerName(res.UserID)
	n.channel.Post(FormatPayment(res, player))

	intent := payment.Intent{GameType: res.GameType, BetChoice: res.BetChoice}
	if !intent.Playable() {
		n.tell(res.UserID, fmt.Sprintf("✅ Баланс пополнен на %s %s\n\n💵 Текущий баланс: %s %s", res.Amount, res.Asset, res.Balance, res.Asset))
		return
	}

	g, ok := n.registry.Get(intent.GameType)
	if !ok {
		log.Info().
			Int64("user_id", int64(res.UserID)).
			Str("game", string(intent.GameType)).
			Msg("Payment names a game without a resolver, kept as deposit")
		n.tell(res.UserID, fmt.Sprintf("✅ Баланс пополнен на %s %s\n\nРежим %s пока недоступен.", res.Amount, res.Asset, GameLabel(intent.GameType)))
		return
	}

	roller, inChannel := n.channel.Dice()
	if !inChannel {
		roller = game.RandomRoller{}
	}

	result, err := n.resolver.Play(ctx, game.PlayRequest{
		Game:   g,
		UserID: res.UserID,
		Choice: intent.BetChoice,
		Bet:    res.Amount,
		Roller: roller,
	})
	if err != nil {
		log.Error().Err(err).
			Int64("user_id", int64(res.UserID)).
			Int64("invoice_id", res.InvoiceID).
			Msg("Failed to play paid bet, amount kept as deposit")
		n.tell(res.UserID, fmt.Sprintf("❌ Не удалось провести игру. %s %s зачислены на баланс.", res.Amount, res.Asset))
		return
	}

	if inChannel {
		time.Sleep(n.animation)
	}
	n.channel.Post(FormatChannelResult(result, player, res.Asset))
	n.tell(res.UserID, FormatGameResult(result, res.Asset))
}

func (n *PaymentNotifier) playerName(id model.UserID) string {
	if acc, ok := n.ledger.Get(id); ok && acc.Username != "" {
		return "@" + acc.Username
	}
	return fmt.Sprintf("user%d", id)
}

// tell messages the player privately; it fails if they never started the bot.
func (n *PaymentNotifier) tell(id model.UserID, text string) {
	if n.sender == nil {
		return
	}
	if _, err := n.sender.Send(tele.ChatID(id), text); err != nil {
		log.Debug().Err(err).Int64("user_id", int64(id)).Msg("Failed to notify player")
	}
}
