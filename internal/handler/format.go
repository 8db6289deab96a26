package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"dice-casino-bot/internal/game"
	"dice-casino-bot/internal/model"
	"dice-casino-bot/internal/settlement"
)

const dateLayout = "2006-01-02 15:04:05"

// platformPrefix marks a withdrawal to a payment platform account: cb:<user_id>.
const platformPrefix = "cb:"

// Argument errors.
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrMissingArguments   = errors.New("missing arguments")
)

// WelcomeText greets the player on /start.
const WelcomeText = "Приветствуем вас в нашем захватывающем казино! 🎰💥 Погрузитесь в мир азарта и удачи прямо сейчас!"

// HelpText lists the commands.
const HelpText = "📖 Команды:\n\n" +
	"/start - главное меню\n" +
	"/deposit <сумма> - пополнить баланс\n" +
	"/withdraw <сумма> <кошелёк|cb:id> - вывести средства\n" +
	"/history - история операций\n" +
	"/invoice <id> - статус счёта\n" +
	"/test - проверка подключения к CryptoBot API"

// GameLabel returns the display name of a game type.
func GameLabel(t model.GameType) string {
	switch t {
	case model.GameEvenOdd:
		return "Чет / Нечет"
	case model.GameHigherLower:
		return "Больше / Меньше"
	case model.GameBowling:
		return "Боулинг"
	default:
		return string(t)
	}
}

// ChoiceLabel returns the display name of a bet choice.
func ChoiceLabel(c model.BetChoice) string {
	switch c {
	case model.ChoiceEven:
		return "Чет"
	case model.ChoiceOdd:
		return "Нечет"
	case model.ChoiceHigher:
		return "Больше"
	case model.ChoiceLower:
		return "Меньше"
	case model.ChoiceWin:
		return "Победа"
	case model.ChoiceLose:
		return "Поражение"
	default:
		return string(c)
	}
}

// DisplayName prefers the @username, then the first name.
func DisplayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return fmt.Sprintf("user%d", u.ID)
}

// FormatProfile renders the profile screen.
func FormatProfile(acc model.Account, asset string) string {
	var sb strings.Builder
	sb.WriteString("👤 Ваш профиль:\n\n")

	if acc.GamesPlayed > 0 {
		fmt.Fprintf(&sb, "🎮 Количество сыгранных игр: %d\n\n", acc.GamesPlayed)
	} else {
		sb.WriteString("🎮 Вы еще не сыграли ни одной игры!\n\n")
	}

	fmt.Fprintf(&sb, "📅 Дата регистрации: %s\n\n", acc.RegistrationDate.Format(dateLayout))

	if acc.FavoriteGame != nil {
		fmt.Fprintf(&sb, "❤️ Любимый режим: %s\n\n", GameLabel(*acc.FavoriteGame))
	} else {
		sb.WriteString("❤️ У вас еще нет любимого режима игры.\n\n")
	}

	fmt.Fprintf(&sb, "💰 Баланс: %s %s", acc.Balance, asset)
	return sb.String()
}

// FormatGameResult renders the result sent to the player.
func FormatGameResult(res *game.Result, asset string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎮 Игра: %s\n", GameLabel(res.GameType))
	fmt.Fprintf(&sb, "🎯 Ваша ставка: %s (%s %s)\n", ChoiceLabel(res.Choice), res.Bet, asset)
	fmt.Fprintf(&sb, "🎲 Выпало: %d (%s)\n", res.Die, ChoiceLabel(res.Outcome))
	if res.Win {
		fmt.Fprintf(&sb, "🎉 Поздравляем! Вы выиграли %s %s!\n", res.Payout, asset)
	} else {
		fmt.Fprintf(&sb, "😢 К сожалению, вы проиграли %s %s.\n", res.Debited, asset)
	}
	fmt.Fprintf(&sb, "\n💵 Текущий баланс: %s %s", res.Balance, asset)
	return sb.String()
}

// FormatChannelResult renders the result posted in the results channel.
func FormatChannelResult(res *game.Result, player, asset string) string {
	outcome := fmt.Sprintf("Проигрыш %s %s", res.Debited, asset)
	if res.Win {
		outcome = fmt.Sprintf("Выигрыш %s %s", res.Payout, asset)
	}
	return fmt.Sprintf(
		"%s Игра: %s\nИгрок: %s\nСтавка: %s - %s %s\nВыпало: %d (%s)\nРезультат: %s",
		gameEmoji(res.GameType), GameLabel(res.GameType),
		player,
		ChoiceLabel(res.Choice), res.Bet, asset,
		res.Die, ChoiceLabel(res.Outcome),
		outcome,
	)
}

// FormatPayment renders a settled payment for the results channel.
func FormatPayment(res *settlement.PaymentResult, player string) string {
	msg := fmt.Sprintf("💰 Новый платёж\n\nИгрок: %s\nСумма: %s %s", player, res.Amount, res.Asset)
	if res.GameType != model.GameUnknown && res.GameType != "" {
		msg += "\nРежим: " + GameLabel(res.GameType)
		if res.BetChoice != model.ChoiceNone && res.BetChoice != model.ChoiceUnknown {
			msg += "\nИсход: " + ChoiceLabel(res.BetChoice)
		}
	}
	return msg
}

// BetInstructions is the results-channel message that accepts bets through payment comments.
func BetInstructions(player string, amount decimal.Decimal, asset string) string {
	return "🎮 НОВАЯ СТАВКА 🔥\n\n" +
		"👤 Игрок: " + player + "\n\n" +
		"📝 В комментарии к платежу укажите:\n\n" +
		"Режим и исход:\n" +
		"• 🎳 Боулинг: бол - победа или бол - поражение\n" +
		"• 🎲 Чет/Нечет: чет или нечет\n" +
		"• 📊 Больше/Меньше: больше или меньше\n\n" +
		"👇 Ставка " + amount.String() + " " + asset + ", оплата через CryptoBot:"
}

// CommentHint is the short form of the payment comment rules.
const CommentHint = "Укажите режим и исход в комментарии к платежу: чет, нечет, больше, меньше."

// InstructionText explains how to bet through a payment.
func InstructionText(asset string) string {
	return "Для продолжения нажмите кнопку 'Сделать ставку' ниже и оплатите ставку в " + asset + ".\n\n" + CommentHint
}

// FormatDeposit renders the reply to /deposit.
func FormatDeposit(res *settlement.DepositResult, amount decimal.Decimal, asset string) string {
	if res.Success {
		return fmt.Sprintf("💳 Счёт на %s %s создан.\n\nНажмите кнопку ниже, чтобы оплатить.", amount, asset)
	}
	if res.Fallback {
		return "⚠️ Не удалось создать персональный счёт. Оплатите через CryptoBot и укажите комментарий к платежу."
	}
	return "❌ Не удалось создать счёт: " + res.Message
}

// FormatWithdrawal renders the reply to /withdraw.
func FormatWithdrawal(res *settlement.WithdrawalResult, asset string) string {
	switch res.Status {
	case settlement.WithdrawalCompleted:
		return fmt.Sprintf(
			"✅ Вывод выполнен\n\nСумма: %s %s\nКомиссия: %s %s\nК получению: %s %s\nПолучатель: %s\n\nБаланс: %s %s",
			res.Amount, asset, res.Fee, asset, res.NetAmount, asset, res.Destination, res.Balance, asset,
		)
	case settlement.WithdrawalInsufficientFunds:
		return fmt.Sprintf("❌ Недостаточно средств. Баланс: %s %s", res.Balance, asset)
	case settlement.WithdrawalFailed:
		return fmt.Sprintf("❌ Вывод не выполнен: %s\n\nСредства возвращены. Баланс: %s %s", res.Message, res.Balance, asset)
	default:
		return "❌ Запрос отклонён: " + res.Message
	}
}

// FormatHistory renders transactions newest first.
func FormatHistory(txs []model.Transaction) string {
	if len(txs) == 0 {
		return "📜 История операций пуста."
	}

	var sb strings.Builder
	sb.WriteString("📜 История операций:")
	for _, tx := range txs {
		kind := "⬆️ Вывод"
		if tx.Type == model.TxTypeDeposit {
			kind = "⬇️ Пополнение"
		}
		fmt.Fprintf(&sb, "\n%s %s %s - %s (%s)", kind, tx.Amount, tx.Asset, txStatusLabel(tx.Status), tx.CreatedAt.Format(dateLayout))
	}
	return sb.String()
}

func txStatusLabel(s model.TxStatus) string {
	switch s {
	case model.TxStatusCompleted:
		return "выполнено"
	case model.TxStatusFailed:
		return "ошибка"
	default:
		return "ожидает"
	}
}

// FormatInvoice renders the reply to /invoice.
func FormatInvoice(st *settlement.InvoiceStatus) string {
	if !st.Success {
		return fmt.Sprintf("❌ Не удалось получить счёт %d: %s", st.InvoiceID, st.Message)
	}
	paid := "не оплачен"
	if st.Paid {
		paid = "оплачен"
	}
	return fmt.Sprintf("🧾 Счёт %d\n\nСтатус: %s (%s)\nСумма: %s %s", st.InvoiceID, st.Status, paid, st.Amount, st.Asset)
}

// FormatConnection renders the API self-test result.
func FormatConnection(res *settlement.ConnectionResult) string {
	if !res.Success {
		return "❌ Ошибка подключения к CryptoBot API:\n\n" + res.Message
	}
	return fmt.Sprintf("✅ Успешное подключение к CryptoBot API!\n\nApp ID: %d\nName: %s", res.AppID, res.AppName)
}

// ParseAmount parses a positive amount; a decimal comma is accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	return amount, nil
}

// ParseWithdrawArgs parses "<amount> <wallet|cb:<user_id>>".
func ParseWithdrawArgs(args []string) (decimal.Decimal, settlement.Destination, error) {
	if len(args) < 2 {
		return decimal.Zero, settlement.Destination{}, ErrMissingArguments
	}

	amount, err := ParseAmount(args[0])
	if err != nil {
		return decimal.Zero, settlement.Destination{}, err
	}

	target := strings.TrimSpace(args[1])
	if rest, ok := strings.CutPrefix(target, platformPrefix); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return decimal.Zero, settlement.Destination{}, fmt.Errorf("%w: %q", ErrInvalidDestination, target)
		}
		return amount, settlement.Destination{PlatformUserID: id}, nil
	}

	if target == "" {
		return decimal.Zero, settlement.Destination{}, ErrInvalidDestination
	}
	return amount, settlement.Destination{WalletAddress: target}, nil
}
