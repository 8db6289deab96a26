// Package ledger implements the user ledger: the in-memory account table,
// its durable backend and the single balance adjustment path.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"dice-casino-bot/internal/model"
	"dice-casino-bot/internal/repository"
)

// Store is a durable backend for the whole account table.
type Store interface {
	Load(ctx context.Context) (map[model.UserID]*model.Account, error)
	Save(ctx context.Context, accounts map[model.UserID]*model.Account) error
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Ledger owns the account table. Balances never go below zero.
type Ledger struct {
	store Store
	now   func() time.Time

	mu       sync.RWMutex
	accounts map[model.UserID]*model.Account

	// persistMu keeps snapshots reaching the store in the order they were taken.
	persistMu sync.Mutex
}

// New creates an empty Ledger backed by store. Call Load to read existing data.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		now:      time.Now,
		accounts: make(map[model.UserID]*model.Account),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces the in-memory table with the stored one. Any load failure
// leaves the ledger empty; startup continues.
func (l *Ledger) Load(ctx context.Context) {
	accounts, err := l.store.Load(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrMalformedStorage) {
			log.Error().Err(err).Msg("Account storage is malformed, starting with an empty ledger")
		} else {
			log.Error().Err(err).Msg("Failed to load accounts, starting with an empty ledger")
		}
		accounts = make(map[model.UserID]*model.Account)
	}

	l.mu.Lock()
	l.accounts = accounts
	l.mu.Unlock()

	log.Info().Int("accounts", len(accounts)).Msg("Ledger loaded")
}

// Get returns a copy of the account, if present.
func (l *Ledger) Get(id model.UserID) (model.Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.accounts[id]
	if !ok {
		return model.Account{}, false
	}
	return *acc.Clone(), true
}

// Upsert replaces the account record and stamps its last activity.
func (l *Ledger) Upsert(ctx context.Context, acc model.Account) {
	l.mu.Lock()
	stored := acc.Clone()
	stored.LastActivity = l.now()
	l.accounts[acc.UserID] = stored
	l.mu.Unlock()

	l.persistQuietly(ctx)
}

// EnsureAccount returns the account for id, creating it with a zero balance on
// first contact. A changed non-empty username is refreshed.
func (l *Ledger) EnsureAccount(ctx context.Context, id model.UserID, username string) (model.Account, bool) {
	l.mu.Lock()
	acc, ok := l.accounts[id]
	switch {
	case !ok:
		acc = l.newAccountLocked(id)
		acc.Username = username
	case username != "" && acc.Username != username:
		acc.Username = username
		acc.LastActivity = l.now()
	default:
		out := *acc.Clone()
		l.mu.Unlock()
		return out, false
	}
	out := *acc.Clone()
	l.mu.Unlock()

	if !ok {
		log.Info().Int64("user_id", int64(id)).Str("username", username).Msg("Account created")
	}
	l.persistQuietly(ctx)
	return out, !ok
}

// Balance returns the current balance; an absent account reads as zero.
func (l *Ledger) Balance(id model.UserID) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if acc, ok := l.accounts[id]; ok {
		return acc.Balance
	}
	return decimal.Zero
}

// AdjustBalance applies delta and clamps the result at zero. It is the only
// way balances change. The account is created when absent.
func (l *Ledger) AdjustBalance(ctx context.Context, id model.UserID, delta decimal.Decimal) decimal.Decimal {
	l.mu.Lock()
	acc, ok := l.accounts[id]
	if !ok {
		acc = l.newAccountLocked(id)
	}
	before := acc.Balance
	after := before.Add(delta)
	if after.IsNegative() {
		after = decimal.Zero
	}
	acc.Balance = after
	acc.LastActivity = l.now()
	l.mu.Unlock()

	evt := log.Info()
	if delta.IsNegative() {
		evt = evt.Str("op", "debit")
	} else {
		evt = evt.Str("op", "credit")
	}
	evt.Int64("user_id", int64(id)).
		Str("delta", delta.String()).
		Str("before", before.String()).
		Str("balance", after.String()).
		Msg("Balance adjusted")

	l.persistQuietly(ctx)
	return after
}

// RecordGame counts one finished game and refreshes the favorite game.
func (l *Ledger) RecordGame(ctx context.Context, id model.UserID, gameType model.GameType) {
	l.mu.Lock()
	acc, ok := l.accounts[id]
	if !ok {
		acc = l.newAccountLocked(id)
	}
	acc.GamesPlayed++
	switch gameType {
	case model.GameEvenOdd:
		acc.EvenOddGames++
	case model.GameHigherLower:
		acc.HigherLowerGames++
	}
	acc.FavoriteGame = favoriteGame(acc)
	acc.LastActivity = l.now()
	l.mu.Unlock()

	l.persistQuietly(ctx)
}

// Len returns the number of accounts.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.accounts)
}

// Persist writes a snapshot of the full table to the store.
func (l *Ledger) Persist(ctx context.Context) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.RLock()
	snapshot := make(map[model.UserID]*model.Account, len(l.accounts))
	for id, acc := range l.accounts {
		snapshot[id] = acc.Clone()
	}
	l.mu.RUnlock()

	return l.store.Save(ctx, snapshot)
}

// persistQuietly logs persist failures. The in-memory table stays authoritative.
func (l *Ledger) persistQuietly(ctx context.Context) {
	if err := l.Persist(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to persist ledger")
	}
}

func (l *Ledger) newAccountLocked(id model.UserID) *model.Account {
	now := l.now()
	acc := &model.Account{
		UserID:           id,
		Balance:          decimal.Zero,
		RegistrationDate: now,
		LastActivity:     now,
	}
	l.accounts[id] = acc
	return acc
}

// favoriteGame picks the most played game; ties go to even/odd.
func favoriteGame(acc *model.Account) *model.GameType {
	var fav model.GameType
	switch {
	case acc.EvenOddGames == 0 && acc.HigherLowerGames == 0:
		return nil
	case acc.HigherLowerGames > acc.EvenOddGames:
		fav = model.GameHigherLower
	default:
		fav = model.GameEvenOdd
	}
	return &fav
}
