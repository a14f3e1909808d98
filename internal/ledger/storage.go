package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when the account does not exist.
var ErrNotFound = errors.New("ledger: account not found")

// Storage handles account and balance persistence
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new storage instance
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

// migrate creates necessary tables
func (s *Storage) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT,
		credits INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS generations (
		id TEXT PRIMARY KEY,
		account_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		kind TEXT NOT NULL,
		tone TEXT NOT NULL,
		length TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (account_id) REFERENCES accounts(id)
	);

	CREATE INDEX IF NOT EXISTS idx_generations_account ON generations(account_id);
	CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// List returns all accounts
func (s *Storage) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, credits, created_at, updated_at
		FROM accounts ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		var email sql.NullString

		if err := rows.Scan(&a.ID, &a.Name, &email, &a.Credits, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if email.Valid {
			a.Email = email.String
		}

		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// Get returns an account by ID
func (s *Storage) Get(ctx context.Context, id int64) (*Account, error) {
	var a Account
	var email sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, credits, created_at, updated_at
		FROM accounts WHERE id = ?
	`, id).Scan(&a.ID, &a.Name, &email, &a.Credits, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if email.Valid {
		a.Email = email.String
	}

	return &a, nil
}

// Create creates a new account with the given starting balance
func (s *Storage) Create(ctx context.Context, input AccountInput, initialCredits int64) (*Account, error) {
	if initialCredits < 0 {
		return nil, fmt.Errorf("ledger: initial credits must not be negative")
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (name, email, credits)
		VALUES (?, ?, ?)
	`, input.Name, input.Email, initialCredits)
	if err != nil {
		return nil, err
	}

	id, _ := result.LastInsertId()
	return s.Get(ctx, id)
}

// UpdateName updates an account's display name
func (s *Storage) UpdateName(ctx context.Context, id int64, name string) (*Account, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET name = ?, updated_at = ? WHERE id = ?
	`, name, time.Now(), id)
	if err != nil {
		return nil, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	return s.Get(ctx, id)
}

// Delete deletes an account
func (s *Storage) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	return err
}

// GetBalance returns the current credit balance for an account
func (s *Storage) GetBalance(ctx context.Context, id int64) (int64, error) {
	var credits int64
	err := s.db.QueryRowContext(ctx, `
		SELECT credits FROM accounts WHERE id = ?
	`, id).Scan(&credits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return credits, nil
}

// TryDecrement atomically consumes one credit if the balance allows it.
// The conditional UPDATE is the single synchronization point: two concurrent
// calls against a balance of 1 see exactly one row affected between them.
// RETURNING ties the reported balance to this caller's own decrement.
func (s *Storage) TryDecrement(ctx context.Context, id int64) (int64, bool, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE accounts SET credits = credits - 1, updated_at = ?
		WHERE id = ? AND credits >= 1
		RETURNING credits
	`, time.Now(), id).Scan(&balance)
	if err == nil {
		return balance, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}

	// No row qualified: account unknown or balance already zero
	balance, err = s.GetBalance(ctx, id)
	if err != nil {
		return 0, false, err
	}

	return balance, false, nil
}

// Credit adds credits to an account (top-up) and returns the new balance
func (s *Storage) Credit(ctx context.Context, id int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("ledger: credit amount must be positive")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET credits = credits + ?, updated_at = ? WHERE id = ?
	`, amount, time.Now(), id)
	if err != nil {
		return 0, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}

	return s.GetBalance(ctx, id)
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection
func (s *Storage) DB() *sql.DB {
	return s.db
}
