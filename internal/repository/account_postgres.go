package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"dice-casino-bot/internal/model"
)

// PostgresAccountStore keeps the account table in PostgreSQL.
// Save rewrites every row in one transaction so the table always matches a
// single in-memory snapshot.
type PostgresAccountStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountStore creates a new PostgresAccountStore instance.
func NewPostgresAccountStore(pool *pgxpool.Pool) *PostgresAccountStore {
	return &PostgresAccountStore{pool: pool}
}

// Migrate creates the accounts table if it does not exist.
func (s *PostgresAccountStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			user_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			balance NUMERIC(36, 18) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			games_played INT NOT NULL DEFAULT 0,
			even_odd_games INT NOT NULL DEFAULT 0,
			higher_lower_games INT NOT NULL DEFAULT 0,
			favorite_game VARCHAR(32),
			registration_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_activity TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}
	return nil
}

// Load reads the full account table.
func (s *PostgresAccountStore) Load(ctx context.Context) (map[model.UserID]*model.Account, error) {
	const query = `
		SELECT user_id, username, balance::text, games_played, even_odd_games,
		       higher_lower_games, favorite_game, registration_date, last_activity
		FROM accounts
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	defer rows.Close()

	accounts := make(map[model.UserID]*model.Account)
	for rows.Next() {
		var (
			acc      model.Account
			userID   int64
			balance  string
			favorite *string
		)
		err := rows.Scan(
			&userID,
			&acc.Username,
			&balance,
			&acc.GamesPlayed,
			&acc.EvenOddGames,
			&acc.HigherLowerGames,
			&favorite,
			&acc.RegistrationDate,
			&acc.LastActivity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		acc.UserID = model.UserID(userID)

		acc.Balance, err = decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("%w: balance %q for user %d", ErrMalformedStorage, balance, acc.UserID)
		}
		if favorite != nil {
			fav := model.GameType(*favorite)
			acc.FavoriteGame = &fav
		}
		accounts[acc.UserID] = &acc
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// Save upserts every account of the snapshot in a single transaction.
func (s *PostgresAccountStore) Save(ctx context.Context, accounts map[model.UserID]*model.Account) error {
	const query = `
		INSERT INTO accounts (user_id, username, balance, games_played, even_odd_games,
		                      higher_lower_games, favorite_game, registration_date, last_activity)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			balance = EXCLUDED.balance,
			games_played = EXCLUDED.games_played,
			even_odd_games = EXCLUDED.even_odd_games,
			higher_lower_games = EXCLUDED.higher_lower_games,
			favorite_game = EXCLUDED.favorite_game,
			registration_date = EXCLUDED.registration_date,
			last_activity = EXCLUDED.last_activity
	`

	if len(accounts) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, acc := range accounts {
		var favorite *string
		if acc.FavoriteGame != nil {
			fav := string(*acc.FavoriteGame)
			favorite = &fav
		}
		batch.Queue(query,
			int64(acc.UserID),
			acc.Username,
			acc.Balance.String(),
			acc.GamesPlayed,
			acc.EvenOddGames,
			acc.HigherLowerGames,
			favorite,
			acc.RegistrationDate,
			acc.LastActivity,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit accounts: %w", err)
	}

	return nil
}
