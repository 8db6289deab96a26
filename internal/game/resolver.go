package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"dice-casino-bot/internal/model"
	"dice-casino-bot/internal/pkg/lock"
)

// PayoutMultiplier is applied to a winning bet; the payout is truncated to
// whole units.
var PayoutMultiplier = decimal.RequireFromString("1.5")

// DefaultLockTimeout bounds the wait for a user's previous game to finish.
const DefaultLockTimeout = 30 * time.Second

// Errors returned by Play.
var (
	ErrInvalidBet     = errors.New("bet amount must be positive")
	ErrInvalidChoice  = errors.New("choice is not valid for this game")
	ErrInvalidDie     = errors.New("die value must be between 1 and 6")
	ErrGameInProgress = errors.New("another game is in progress")
	ErrMissingGame    = errors.New("game is required")
	ErrMissingRoller  = errors.New("roller is required")
)

// Accounts is the part of the ledger games touch.
type Accounts interface {
	Balance(id model.UserID) decimal.Decimal
	AdjustBalance(ctx context.Context, id model.UserID, delta decimal.Decimal) decimal.Decimal
	RecordGame(ctx context.Context, id model.UserID, gameType model.GameType)
}

// PlayRequest is one bet.
type PlayRequest struct {
	Game   Game
	UserID model.UserID
	Choice model.BetChoice
	Bet    decimal.Decimal
	Roller Roller
}

// Result is the settled outcome of one bet.
type Result struct {
	GameType model.GameType
	UserID   model.UserID
	Choice   model.BetChoice
	Die      int
	Outcome  model.BetChoice
	Win      bool
	Bet      decimal.Decimal
	// Debited is what the stake actually removed; less than Bet when the
	// balance was lower.
	Debited decimal.Decimal
	Payout  decimal.Decimal
	// Net is +Payout on a win and -Bet on a loss.
	Net     decimal.Decimal
	Balance decimal.Decimal
}

// Resolver plays bets against the ledger, one game per user at a time.
type Resolver struct {
	accounts    Accounts
	locks       *lock.UserLock[model.UserID]
	lockTimeout time.Duration
}

// NewResolver creates a Resolver. A nil locks gets a private lock set.
func NewResolver(accounts Accounts, locks *lock.UserLock[model.UserID]) *Resolver {
	if locks == nil {
		locks = lock.New[model.UserID]()
	}
	return &Resolver{
		accounts:    accounts,
		locks:       locks,
		lockTimeout: DefaultLockTimeout,
	}
}

// CalculatePayout returns floor(bet * 1.5).
func CalculatePayout(bet decimal.Decimal) decimal.Decimal {
	return bet.Mul(PayoutMultiplier).Truncate(0)
}

// Play stakes the bet, rolls the die and pays out on a win. The stake is
// clamped by the ledger, so a player with no balance still plays.
// If the roll fails the stake is returned and no game is recorded.
func (r *Resolver) Play(ctx context.Context, req PlayRequest) (*Result, error) {
	if req.Game == nil {
		return nil, ErrMissingGame
	}
	if req.Roller == nil {
		return nil, ErrMissingRoller
	}
	if !req.Bet.IsPositive() {
		return nil, ErrInvalidBet
	}
	if !ValidChoice(req.Game, req.Choice) {
		return nil, fmt.Errorf("%w: %q for %s", ErrInvalidChoice, req.Choice, req.Game.Type())
	}

	if err := r.locks.LockContext(ctx, req.UserID, r.lockTimeout); err != nil {
		return nil, ErrGameInProgress
	}
	defer r.locks.Unlock(req.UserID)

	// The stake and its refund must both land even if ctx is cancelled.
	bg := context.WithoutCancel(ctx)

	before := r.accounts.Balance(req.UserID)
	afterStake := r.accounts.AdjustBalance(bg, req.UserID, req.Bet.Neg())
	debited := before.Sub(afterStake)

	die, err := req.Roller.Roll(ctx)
	if err == nil && (die < MinDie || die > MaxDie) {
		err = fmt.Errorf("%w: got %d", ErrInvalidDie, die)
	}
	if err != nil {
		if debited.IsPositive() {
			r.accounts.AdjustBalance(bg, req.UserID, debited)
		}
		log.Error().Err(err).
			Int64("user_id", int64(req.UserID)).
			Str("game", string(req.Game.Type())).
			Msg("Dice roll failed, stake returned")
		return nil, fmt.Errorf("failed to roll: %w", err)
	}

	outcome := req.Game.Outcome(die)
	res := &Result{
		GameType: req.Game.Type(),
		UserID:   req.UserID,
		Choice:   req.Choice,
		Die:      die,
		Outcome:  outcome,
		Win:      outcome == req.Choice,
		Bet:      req.Bet,
		Debited:  debited,
		Payout:   decimal.Zero,
		Net:      req.Bet.Neg(),
		Balance:  afterStake,
	}

	if res.Win {
		res.Payout = CalculatePayout(req.Bet)
		res.Net = res.Payout
		res.Balance = r.accounts.AdjustBalance(bg, req.UserID, res.Payout)
	}

	r.accounts.RecordGame(bg, req.UserID, res.GameType)

	log.Info().
		Int64("user_id", int64(req.UserID)).
		Str("game", string(res.GameType)).
		Str("choice", string(req.Choice)).
		Int("die", die).
		Bool("win", res.Win).
		Str("bet", req.Bet.String()).
		Str("net", res.Net.String()).
		Msg("Game played")

	return res, nil
}
