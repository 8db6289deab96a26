// Package model defines the data models for the dice casino bot.
package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UserID is the stable external identifier of a player (the Telegram user id).
type UserID int64

// GameType identifies a game mode.
type GameType string

// Game types. Bowling is recognised in payment comments but has no resolver.
const (
	GameEvenOdd     GameType = "even_odd"
	GameHigherLower GameType = "higher_lower"
	GameBowling     GameType = "bowling"
	GameUnknown     GameType = "unknown"
)

// BetChoice is the outcome a player declares. The empty value means "absent".
type BetChoice string

// Bet choices.
const (
	ChoiceNone    BetChoice = ""
	ChoiceEven    BetChoice = "even"
	ChoiceOdd     BetChoice = "odd"
	ChoiceHigher  BetChoice = "higher"
	ChoiceLower   BetChoice = "lower"
	ChoiceWin     BetChoice = "win"
	ChoiceLose    BetChoice = "lose"
	ChoiceUnknown BetChoice = "unknown"
)

// Account is the per-user balance and statistics record.
// Balance is never negative.
type Account struct {
	UserID           UserID          `json:"user_id"`
	Username         string          `json:"username"`
	Balance          decimal.Decimal `json:"balance"`
	GamesPlayed      int             `json:"games_played"`
	EvenOddGames     int             `json:"even_odd_games"`
	HigherLowerGames int             `json:"higher_lower_games"`
	FavoriteGame     *GameType       `json:"favorite_game"`
	RegistrationDate time.Time       `json:"registration_date"`
	LastActivity     time.Time       `json:"last_activity"`
}

// legacyTimeLayout is the timestamp format of account files written by the
// earlier bot.
const legacyTimeLayout = "2006-01-02 15:04:05"

// UnmarshalJSON accepts RFC 3339 timestamps as well as the legacy layout.
func (a *Account) UnmarshalJSON(data []byte) error {
	type account Account
	aux := struct {
		*account
		RegistrationDate *string `json:"registration_date"`
		LastActivity     *string `json:"last_activity"`
	}{account: (*account)(a)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if a.RegistrationDate, err = parseAccountTime(aux.RegistrationDate); err != nil {
		return fmt.Errorf("registration_date: %w", err)
	}
	if a.LastActivity, err = parseAccountTime(aux.LastActivity); err != nil {
		return fmt.Errorf("last_activity: %w", err)
	}
	return nil
}

func parseAccountTime(s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, *s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(legacyTimeLayout, *s, time.Local)
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	if a.FavoriteGame != nil {
		fav := *a.FavoriteGame
		c.FavoriteGame = &fav
	}
	return &c
}

// TxType categorises a payment transaction.
type TxType string

// Transaction types.
const (
	TxTypeDeposit    TxType = "deposit"
	TxTypeWithdrawal TxType = "withdrawal"
)

// TxStatus is the lifecycle state of a payment transaction.
type TxStatus string

// Transaction statuses.
const (
	TxStatusPending   TxStatus = "pending"
	TxStatusCompleted TxStatus = "completed"
	TxStatusFailed    TxStatus = "failed"
)

// Transaction is the ephemeral record of one deposit or withdrawal attempt.
// It lives only in the settlement engine's memory.
type Transaction struct {
	ID          string
	UserID      UserID
	Type        TxType
	Amount      decimal.Decimal
	NetAmount   decimal.Decimal
	Fee         decimal.Decimal
	Asset       string
	Destination string
	Status      TxStatus
	Error       string
	TransferID  int64
	InvoiceID   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
