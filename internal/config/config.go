// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	CryptoPay  CryptoPayConfig  `mapstructure:"cryptopay"`
	Withdrawal WithdrawalConfig `mapstructure:"withdrawal"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Games      GamesConfig      `mapstructure:"games"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token            string `mapstructure:"token"`
	ResultsChannelID int64  `mapstructure:"results_channel_id"`
	ResultsChannel   string `mapstructure:"results_channel_url"`
}

// CryptoPayConfig holds payment provider configuration.
type CryptoPayConfig struct {
	Token              string        `mapstructure:"token"`
	APIURL             string        `mapstructure:"api_url"`
	Asset              string        `mapstructure:"asset"`
	Timeout            time.Duration `mapstructure:"timeout"`
	FallbackInvoiceURL string        `mapstructure:"fallback_invoice_url"`
}

// WithdrawalConfig holds withdrawal fee policy.
type WithdrawalConfig struct {
	Fee string `mapstructure:"fee"`
}

// FeeAmount parses the configured flat fee.
func (w *WithdrawalConfig) FeeAmount() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(w.Fee)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid withdrawal fee %q: %w", w.Fee, err)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("withdrawal fee must not be negative: %s", w.Fee)
	}
	return fee, nil
}

// StorageConfig selects the ledger backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// WebhookConfig holds the payment webhook listener configuration.
type WebhookConfig struct {
	Addr            string `mapstructure:"addr"`
	Path            string `mapstructure:"path"`
	VerifySignature bool   `mapstructure:"verify_signature"`
}

// GamesConfig holds game configuration.
type GamesConfig struct {
	BetAmounts []string `mapstructure:"bet_amounts"`
}

// Bets parses the configured quick-bet amounts.
func (g *GamesConfig) Bets() ([]decimal.Decimal, error) {
	bets := make([]decimal.Decimal, 0, len(g.BetAmounts))
	for _, raw := range g.BetAmounts {
		bet, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid bet amount %q: %w", raw, err)
		}
		if !bet.IsPositive() {
			return nil, fmt.Errorf("bet amount must be positive: %s", raw)
		}
		bets = append(bets, bet)
	}
	return bets, nil
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in configPath, the working directory and ./config.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, CRYPTOPAY_TOKEN, STORAGE_DRIVER
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that viper cannot type-check.
// Missing credentials are not an error here: operations needing them report it.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageFile, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := c.Withdrawal.FeeAmount(); err != nil {
		return err
	}
	if _, err := c.Games.Bets(); err != nil {
		return err
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Empty defaults register the keys so AutomaticEnv can fill them without a file.
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.results_channel_id", 0)
	v.SetDefault("bot.results_channel_url", "")
	v.SetDefault("cryptopay.token", "")
	v.SetDefault("database.password", "")

	v.SetDefault("cryptopay.api_url", "https://pay.crypt.bot/api")
	v.SetDefault("cryptopay.asset", "TON")
	v.SetDefault("cryptopay.timeout", "15s")
	v.SetDefault("cryptopay.fallback_invoice_url", "https://t.me/CryptoBot")

	v.SetDefault("withdrawal.fee", "0.1")

	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.path", "data/users.json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "casino")
	v.SetDefault("database.name", "casino")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("webhook.addr", ":8080")
	v.SetDefault("webhook.path", "/cryptopay/webhook")
	v.SetDefault("webhook.verify_signature", true)

	v.SetDefault("games.bet_amounts", []string{"50", "100", "200"})
}
