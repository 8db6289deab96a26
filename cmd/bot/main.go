// Package main is the entry point for the dice casino bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dice-casino-bot/internal/bot"
	"dice-casino-bot/internal/config"
	"dice-casino-bot/internal/cryptopay"
	"dice-casino-bot/internal/game"
	"dice-casino-bot/internal/game/evenodd"
	"dice-casino-bot/internal/game/higherlower"
	"dice-casino-bot/internal/ledger"
	"dice-casino-bot/internal/model"
	"dice-casino-bot/internal/pkg/db"
	"dice-casino-bot/internal/pkg/lock"
	"dice-casino-bot/internal/repository"
	"dice-casino-bot/internal/settlement"
	"dice-casino-bot/internal/webhook"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Str("storage", cfg.Storage.Driver).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize ledger storage
	store, pool, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger storage")
	}
	if pool != nil {
		defer pool.Close()
	}

	accounts := ledger.New(store)
	accounts.Load(ctx)

	// Per-user locks shared by games and withdrawals
	userLock := lock.New[model.UserID]()

	fee, err := cfg.Withdrawal.FeeAmount()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid withdrawal fee")
	}

	client := cryptopay.NewClient(cfg.CryptoPay.Token,
		cryptopay.WithBaseURL(cfg.CryptoPay.APIURL),
		cryptopay.WithTimeout(cfg.CryptoPay.Timeout),
	)
	if !client.Configured() {
		log.Warn().Msg("CRYPTOPAY_TOKEN is not set, deposits fall back to the static invoice link")
	}

	engine := settlement.New(accounts, client, userLock, settlement.Config{
		Asset:              cfg.CryptoPay.Asset,
		WithdrawalFee:      fee,
		FallbackInvoiceURL: cfg.CryptoPay.FallbackInvoiceURL,
	})

	// Initialize game registry and register games
	registry, err := game.NewRegistry(evenodd.New(), higherlower.New())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register games")
	}
	resolver := game.NewResolver(accounts, userLock)

	log.Info().Int("game_count", registry.Count()).Msg("Games registered")

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:   cfg,
		Ledger:   accounts,
		Engine:   engine,
		Registry: registry,
		Resolver: resolver,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Payment webhook receiver
	server := webhook.NewServer(webhook.NewHandler(webhook.Config{
		Addr:            cfg.Webhook.Addr,
		Path:            cfg.Webhook.Path,
		Token:           cfg.CryptoPay.Token,
		VerifySignature: cfg.Webhook.VerifySignature,
	}, engine, telegramBot.Notifier()))

	go func() {
		log.Info().Str("addr", server.Addr).Str("path", cfg.Webhook.Path).Msg("Webhook server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Webhook server failed")
		}
	}()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Webhook server shutdown failed")
	}
	telegramBot.Stop()

	if err := accounts.Persist(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to persist ledger on shutdown")
	}
	log.Info().Msg("Bot stopped gracefully")
}

// openStore selects the ledger backend. The pool is nil for the file store.
func openStore(ctx context.Context, cfg *config.Config) (ledger.Store, *pgxpool.Pool, error) {
	if cfg.Storage.Driver != config.StoragePostgres {
		log.Info().Str("path", cfg.Storage.Path).Msg("Using JSON file ledger")
		return repository.NewFileAccountStore(cfg.Storage.Path), nil, nil
	}

	pool, err := db.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	store := repository.NewPostgresAccountStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool, nil
}
