package handler

import (
	"strings"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"dice-casino-bot/internal/game"
	"dice-casino-bot/internal/model"
)

// Callback uniques. Arguments travel in the button data, joined by "|".
const (
	CallbackProfile     = "profile"
	CallbackPlay        = "play"
	CallbackBack        = "back"
	CallbackInstruction = "instruction"
	CallbackTestAPI     = "test_api"
	CallbackGame        = "game"   // game|<game_type>
	CallbackChoice      = "choice" // choice|<game_type>|<choice>
	CallbackBet         = "bet"    // bet|<game_type>|<choice>|<amount>
	CallbackChannelBet  = "channel_bet"
)

// ParseCallback splits raw callback data into its unique and arguments.
// telebot prefixes data built with ReplyMarkup.Data with "\f".
func ParseCallback(data string) (string, []string) {
	data = strings.TrimPrefix(data, "\f")
	if data == "" {
		return "", nil
	}
	parts := strings.Split(data, "|")
	return parts[0], parts[1:]
}

// MainMenu is shown on /start and after "back".
func MainMenu() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("Профиль", CallbackProfile),
			markup.Data("ИГРАТЬ", CallbackPlay),
		),
		markup.Row(
			markup.Data("📋 Инструкция", CallbackInstruction),
			markup.Data("🧪 Тест API", CallbackTestAPI),
		),
	)
	return markup
}

// BackMenu holds a single button returning to the main menu.
func BackMenu() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(backButton(markup)))
	return markup
}

// GameMenu lists the registered games, one per row.
func GameMenu(games []game.Game) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	rows := make([]tele.Row, 0, len(games)+2)
	for _, g := range games {
		rows = append(rows, markup.Row(
			markup.Data(gameEmoji(g.Type())+" "+g.Name(), CallbackGame, string(g.Type())),
		))
	}
	rows = append(rows,
		markup.Row(markup.Data("💰 Ставка через канал", CallbackChannelBet)),
		markup.Row(backButton(markup)),
	)

	markup.Inline(rows...)
	return markup
}

// ChoiceMenu offers the outcomes of g side by side.
func ChoiceMenu(g game.Game) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	choices := make([]tele.Btn, 0, len(g.Choices()))
	for _, c := range g.Choices() {
		choices = append(choices, markup.Data(ChoiceLabel(c), CallbackChoice, string(g.Type()), string(c)))
	}

	markup.Inline(
		markup.Row(choices...),
		markup.Row(markup.Data("◀️ Назад", CallbackPlay)),
	)
	return markup
}

// BetMenu offers quick bet amounts for a chosen outcome.
func BetMenu(gameType model.GameType, choice model.BetChoice, bets []decimal.Decimal, asset string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	var currentRow []tele.Btn
	for i, bet := range bets {
		currentRow = append(currentRow, markup.Data(
			bet.String()+" "+asset,
			CallbackBet, string(gameType), string(choice), bet.String(),
		))

		// 3 buttons per row
		if len(currentRow) == 3 || i == len(bets)-1 {
			rows = append(rows, markup.Row(currentRow...))
			currentRow = nil
		}
	}
	rows = append(rows, markup.Row(markup.Data("◀️ Назад", CallbackGame, string(gameType))))

	markup.Inline(rows...)
	return markup
}

// PayMenu links to an invoice. withInstruction adds the instruction button,
// otherwise a back button is added.
func PayMenu(text, payURL string, withInstruction bool) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	second := backButton(markup)
	if withInstruction {
		second = markup.Data("📋 Инструкция", CallbackInstruction)
	}

	markup.Inline(
		markup.Row(markup.URL(text, payURL)),
		markup.Row(second),
	)
	return markup
}

// ChannelMenu links to the results channel.
func ChannelMenu(channelURL string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(markup.URL("🎲 Перейти в канал", channelURL)),
		markup.Row(backButton(markup)),
	)
	return markup
}

func backButton(markup *tele.ReplyMarkup) tele.Btn {
	return markup.Data("◀️ Назад", CallbackBack)
}

func gameEmoji(t model.GameType) string {
	switch t {
	case model.GameEvenOdd:
		return "🎲"
	case model.GameHigherLower:
		return "📊"
	case model.GameBowling:
		return "🎳"
	default:
		return "🎮"
	}
}
