package handler

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dice-casino-bot/internal/game"
	"dice-casino-bot/internal/game/evenodd"
	"dice-casino-bot/internal/game/higherlower"
	"dice-casino-bot/internal/model"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data   string
		unique string
		args   []string
	}{
		{"\fprofile", CallbackProfile, []string{}},
		{"profile", CallbackProfile, []string{}},
		{"\fgame|even_odd", CallbackGame, []string{"even_odd"}},
		{"\fbet|higher_lower|lower|100", CallbackBet, []string{"higher_lower", "lower", "100"}},
		{"", "", nil},
		{"\f", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			unique, args := ParseCallback(tt.data)
			assert.Equal(t, tt.unique, unique)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestMainMenu(t *testing.T) {
	markup := MainMenu()
	require.Len(t, markup.InlineKeyboard, 2)

	var uniques []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			uniques = append(uniques, btn.Unique)
		}
	}
	assert.Equal(t, []string{CallbackProfile, CallbackPlay, CallbackInstruction, CallbackTestAPI}, uniques)
}

func TestGameMenu(t *testing.T) {
	registry, err := game.NewRegistry(evenodd.New(), higherlower.New())
	require.NoError(t, err)

	markup := GameMenu(registry.List())
	// One row per game, the channel bet and back.
	require.Len(t, markup.InlineKeyboard, 4)
	assert.Equal(t, CallbackGame, markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, string(model.GameEvenOdd), markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, string(model.GameHigherLower), markup.InlineKeyboard[1][0].Data)
	assert.Equal(t, CallbackChannelBet, markup.InlineKeyboard[2][0].Unique)
	assert.Equal(t, CallbackBack, markup.InlineKeyboard[3][0].Unique)
}

func TestChoiceMenu(t *testing.T) {
	markup := ChoiceMenu(higherlower.New())
	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 2)

	btn := markup.InlineKeyboard[0][0]
	assert.Equal(t, CallbackChoice, btn.Unique)
	assert.Equal(t, "higher_lower|higher", btn.Data)
	assert.Equal(t, "Больше", btn.Text)
}

func TestBetMenu(t *testing.T) {
	bets := []decimal.Decimal{dec("50"), dec("100"), dec("200"), dec("500")}
	markup := BetMenu(model.GameEvenOdd, model.ChoiceOdd, bets, "TON")

	// Three per row, then back.
	require.Len(t, markup.InlineKeyboard, 3)
	assert.Len(t, markup.InlineKeyboard[0], 3)
	assert.Len(t, markup.InlineKeyboard[1], 1)

	btn := markup.InlineKeyboard[1][0]
	assert.Equal(t, CallbackBet, btn.Unique)
	assert.Equal(t, "even_odd|odd|500", btn.Data)
	assert.Equal(t, "500 TON", btn.Text)

	unique, args := ParseCallback("\f" + btn.Unique + "|" + btn.Data)
	assert.Equal(t, CallbackBet, unique)
	assert.Equal(t, []string{"even_odd", "odd", "500"}, args)
}

func TestPayMenu(t *testing.T) {
	markup := PayMenu("💰 Сделать ставку", "https://t.me/CryptoBot?start=IV1", true)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "https://t.me/CryptoBot?start=IV1", markup.InlineKeyboard[0][0].URL)
	assert.Equal(t, CallbackInstruction, markup.InlineKeyboard[1][0].Unique)

	markup = PayMenu("Оплатить", "https://t.me/CryptoBot", false)
	assert.Equal(t, CallbackBack, markup.InlineKeyboard[1][0].Unique)
}
