package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, StorageFile, cfg.Storage.Driver)
	assert.Equal(t, "data/users.json", cfg.Storage.Path)
	assert.Equal(t, "https://pay.crypt.bot/api", cfg.CryptoPay.APIURL)
	assert.Equal(t, "TON", cfg.CryptoPay.Asset)
	assert.Equal(t, "/cryptopay/webhook", cfg.Webhook.Path)
	assert.True(t, cfg.Webhook.VerifySignature)

	fee, err := cfg.Withdrawal.FeeAmount()
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.RequireFromString("0.1")))

	bets, err := cfg.Games.Bets()
	require.NoError(t, err)
	require.Len(t, bets, 3)
	assert.True(t, bets[1].Equal(decimal.NewFromInt(100)))
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
bot:
  token: file-token
  results_channel_id: -1001
storage:
  driver: postgres
withdrawal:
  fee: "0.25"
games:
  bet_amounts: ["1", "2.5"]
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Setenv("BOT_TOKEN", "env-token")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Bot.Token)
	assert.Equal(t, int64(-1001), cfg.Bot.ResultsChannelID)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)

	fee, err := cfg.Withdrawal.FeeAmount()
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.RequireFromString("0.25")))

	bets, err := cfg.Games.Bets()
	require.NoError(t, err)
	assert.True(t, bets[1].Equal(decimal.RequireFromString("2.5")))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storage:    StorageConfig{Driver: StorageFile},
			Withdrawal: WithdrawalConfig{Fee: "0"},
			Games:      GamesConfig{BetAmounts: []string{"10"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }, true},
		{"bad fee", func(c *Config) { c.Withdrawal.Fee = "abc" }, true},
		{"negative fee", func(c *Config) { c.Withdrawal.Fee = "-1" }, true},
		{"zero bet", func(c *Config) { c.Games.BetAmounts = []string{"0"} }, true},
		{"bad bet", func(c *Config) { c.Games.BetAmounts = []string{"x"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5433, Name: "casino"}
	assert.Equal(t, "postgres://u:p@db:5433/casino?sslmode=disable", d.DSN())
}
