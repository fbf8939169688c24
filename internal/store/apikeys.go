package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/apperr"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
)

// CreateAPIKey inserts a key record. Hashing is the caller's job; the
// store never sees raw secrets.
func (s *Store) CreateAPIKey(ctx context.Context, k *models.APIKey) error {
	if k.ID == "" {
		k.ID = NewID()
	}
	if k.CreatedAt.IsZero() {
		k.CreatedAt = time.Now().UTC()
	}
	scopesJSON, _ := json.Marshal(orEmptySlice(k.Scopes))

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO api_keys (id, tenant_id, key_hash, scopes, expires_at, last_used_at, created_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?)
	`, k.ID, k.TenantID, k.KeyHash, string(scopesJSON), nullTime(k.ExpiresAt), k.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create api key: %w", err)
	}
	return nil
}

// ActiveAPIKeys returns every key whose expiry is unset or in the future,
// ordered by creation time so the verification loop is deterministic.
func (s *Store) ActiveAPIKeys(ctx context.Context) ([]models.APIKey, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, tenant_id, key_hash, scopes, expires_at, last_used_at, created_at
		FROM api_keys
		WHERE expires_at IS NULL OR expires_at > ?
		ORDER BY created_at, id
	`, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("store: active api keys: %w", err)
	}
	defer rows.Close()

	var out []models.APIKey
	for rows.Next() {
		var (
			k          models.APIKey
			scopesJSON string
			expiresAt  sql.NullTime
			lastUsedAt sql.NullTime
		)
		if err := rows.Scan(&k.ID, &k.TenantID, &k.KeyHash, &scopesJSON,
			&expiresAt, &lastUsedAt, &k.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(scopesJSON), &k.Scopes)
		if expiresAt.Valid {
			t := expiresAt.Time
			k.ExpiresAt = &t
		}
		if lastUsedAt.Valid {
			t := lastUsedAt.Time
			k.LastUsedAt = &t
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// TouchAPIKeyLastUsed records a successful use of the key.
func (s *Store) TouchAPIKeyLastUsed(ctx context.Context, id string) error {
	_, err := s.conn.ExecContext(ctx, `
		UPDATE api_keys SET last_used_at = ? WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: touch api key: %w", err)
	}
	return nil
}

// DeleteAPIKey removes a key record.
func (s *Store) DeleteAPIKey(ctx context.Context, tenantID, id string) error {
	res, err := s.conn.ExecContext(ctx, `
		DELETE FROM api_keys WHERE tenant_id = ? AND id = ?
	`, tenantID, id)
	if err != nil {
		return fmt.Errorf("store: delete api key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
