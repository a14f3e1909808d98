package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrPersistence is returned when a record could not be made durable.
var ErrPersistence = errors.New("archive: persistence failed")

// Store is the durable, append-only record of completed generations
type Store struct {
	db *sql.DB
}

// NewStore creates a new archive store over an existing database
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append persists a new record. A record is either fully visible after Append
// returns nil, or not visible at all.
func (s *Store) Append(ctx context.Context, rec *Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (id, account_id, title, content, kind, tone, length, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.AccountID, rec.Title, rec.Content, rec.Kind, rec.Tone, rec.Length, rec.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return rec.ID, nil
}

// ListByAccount returns all records for an account, newest first
func (s *Store) ListByAccount(ctx context.Context, accountID int64) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, title, content, kind, tone, length, created_at
		FROM generations
		WHERE account_id = ?
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Title, &r.Content, &r.Kind, &r.Tone, &r.Length, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Stats represents archive-wide usage statistics
type Stats struct {
	TotalGenerations int64       `json:"total_generations"`
	GenerationsToday int64       `json:"generations_today"`
	ByKind           []KindStats `json:"by_kind"`
}

// KindStats represents per-kind generation counts
type KindStats struct {
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

// GetStats returns overall generation statistics
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM generations
	`).Scan(&stats.TotalGenerations)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM generations WHERE created_at >= ?
	`, today).Scan(&stats.GenerationsToday)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*)
		FROM generations
		GROUP BY kind
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var k KindStats
		if err := rows.Scan(&k.Kind, &k.Count); err != nil {
			return nil, err
		}
		stats.ByKind = append(stats.ByKind, k)
	}

	return &stats, rows.Err()
}
