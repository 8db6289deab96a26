package ledger

import (
	"context"
	"sync"

	"dice-casino-bot/internal/model"
)

// MemoryStore is a Store kept in process memory. It is used in tests and
// when durable storage is not wanted.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[model.UserID]*model.Account
	saves    int
	err      error
}

// NewMemoryStore creates a MemoryStore preloaded with the given accounts.
func NewMemoryStore(accounts ...model.Account) *MemoryStore {
	s := &MemoryStore{accounts: make(map[model.UserID]*model.Account)}
	for _, acc := range accounts {
		s.accounts[acc.UserID] = acc.Clone()
	}
	return s
}

// Load returns a copy of the stored table, or the configured failure.
func (s *MemoryStore) Load(ctx context.Context) (map[model.UserID]*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return cloneTable(s.accounts), nil
}

// Save replaces the stored table, or returns the configured failure.
func (s *MemoryStore) Save(ctx context.Context, accounts map[model.UserID]*model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.accounts = cloneTable(accounts)
	s.saves++
	return nil
}

// FailWith makes every subsequent Load and Save return err. Nil clears it.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Saves reports how many successful saves happened.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func cloneTable(in map[model.UserID]*model.Account) map[model.UserID]*model.Account {
	out := make(map[model.UserID]*model.Account, len(in))
	for id, acc := range in {
		out[id] = acc.Clone()
	}
	return out
}
