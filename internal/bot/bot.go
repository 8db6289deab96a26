// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"dice-casino-bot/internal/config"
	"dice-casino-bot/internal/game"
	"dice-casino-bot/internal/handler"
	"dice-casino-bot/internal/ledger"
	"dice-casino-bot/internal/settlement"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.Config
	channel *handler.ResultsChannel

	// Handlers
	accountHandler *handler.AccountHandler
	gameHandler    *handler.GameHandler
	paymentHandler *handler.PaymentHandler
	notifier       *handler.PaymentNotifier
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config   *config.Config
	Ledger   *ledger.Ledger
	Engine   *settlement.Engine
	Registry *game.Registry
	Resolver *game.Resolver
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	bets, err := deps.Config.Games.Bets()
	if err != nil {
		return nil, err
	}
	if len(bets) == 0 {
		return nil, fmt.Errorf("at least one bet amount is required")
	}

	pref := tele.Settings{
		Token:   deps.Config.Bot.Token,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: onError,
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	asset := deps.Engine.Asset()
	channel := handler.NewResultsChannel(teleBot, deps.Config.Bot.ResultsChannelID, deps.Config.Bot.ResultsChannel)

	b := &Bot{
		bot:     teleBot,
		cfg:     deps.Config,
		channel: channel,
	}

	// Initialize handlers
	b.accountHandler = handler.NewAccountHandler(deps.Ledger, asset)
	b.gameHandler = handler.NewGameHandler(deps.Ledger, deps.Registry, deps.Resolver, channel, bets, asset)
	b.paymentHandler = handler.NewPaymentHandler(deps.Ledger, deps.Engine, channel, bets[0])
	b.notifier = handler.NewPaymentNotifier(teleBot, deps.Ledger, deps.Registry, deps.Resolver, channel)

	// Register middleware
	b.registerMiddleware()

	// Register handlers
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Account handlers
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/help", b.accountHandler.HandleHelp)

	// Payment handlers
	b.bot.Handle("/deposit", b.paymentHandler.HandleDeposit)
	b.bot.Handle("/withdraw", b.paymentHandler.HandleWithdraw)
	b.bot.Handle("/history", b.paymentHandler.HandleHistory)
	b.bot.Handle("/invoice", b.paymentHandler.HandleInvoice)
	b.bot.Handle("/test", b.paymentHandler.HandleTest)

	// Generic callback handler for all inline buttons
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to appropriate handlers
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	unique, args := handler.ParseCallback(callback.Data)
	log.Debug().Str("unique", unique).Strs("args", args).Msg("Callback received")

	switch unique {
	case handler.CallbackProfile:
		return b.accountHandler.HandleProfile(c)
	case handler.CallbackBack:
		return b.accountHandler.HandleBack(c)
	case handler.CallbackPlay:
		return b.gameHandler.HandlePlay(c)
	case handler.CallbackGame:
		return b.gameHandler.HandleGame(c, args)
	case handler.CallbackChoice:
		return b.gameHandler.HandleChoice(c, args)
	case handler.CallbackBet:
		return b.gameHandler.HandleBet(c, args)
	case handler.CallbackInstruction:
		return b.paymentHandler.HandleInstruction(c)
	case handler.CallbackTestAPI:
		return b.paymentHandler.HandleTest(c)
	case handler.CallbackChannelBet:
		return b.paymentHandler.HandleChannelBet(c)
	default:
		return c.Respond(&tele.CallbackResponse{Text: "Пожалуйста, используйте кнопки для взаимодействия с ботом."})
	}
}

// Notifier returns the listener that reacts to settled payments.
func (b *Bot) Notifier() *handler.PaymentNotifier {
	return b.notifier
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().
		Str("username", b.bot.Me.Username).
		Bool("results_channel", b.channel.Enabled()).
		Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

func onError(err error, c tele.Context) {
	ev := log.Error().Err(err)
	if c != nil && c.Sender() != nil {
		ev = ev.Int64("user_id", c.Sender().ID)
	}
	ev.Msg("Handler failed")
}
