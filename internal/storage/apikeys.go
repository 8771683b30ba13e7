package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// KeyStore persists provider API keys saved through the settings surface.
type KeyStore struct {
	db *sql.DB
}

func NewKeyStore(db *sql.DB) *KeyStore {
	return &KeyStore{db: db}
}

// Set stores or replaces the key for a provider.
func (s *KeyStore) Set(ctx context.Context, provider, apiKey string) error {
	if provider == "" {
		return fmt.Errorf("provider required")
	}
	if apiKey == "" {
		return fmt.Errorf("api key required")
	}
	// Delete-then-insert keeps the statement portable across both drivers.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE provider = ?`, provider); err != nil {
		return fmt.Errorf("replace api key: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (provider, api_key, created_at) VALUES (?, ?, ?)`,
		provider, apiKey, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store api key: %w", err)
	}
	return nil
}

// Get returns the saved key for a provider, or sql.ErrNoRows.
func (s *KeyStore) Get(ctx context.Context, provider string) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx,
		`SELECT api_key FROM api_keys WHERE provider = ?`, provider).Scan(&key)
	if err != nil {
		return "", err
	}
	return key, nil
}

// Providers lists providers that have a saved key. Key material is never
// returned by this method.
func (s *KeyStore) Providers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT provider FROM api_keys ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	providers := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}
	return providers, nil
}

var ErrNoKey = sql.ErrNoRows
