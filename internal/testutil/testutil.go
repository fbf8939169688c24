// Package testutil provides shared test helpers for setting up stores and
// credentials.
package testutil

import (
	"context"
	"os"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/models"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/store"
)

// TestStore creates a temporary SQLite store that is automatically cleaned
// up.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "neemee-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	s, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// HashKey bcrypt-hashes a raw API key at MinCost to keep tests fast.
func HashKey(t *testing.T, raw string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(hash)
}

// SeedAPIKey stores a hashed key for the tenant and returns the record.
func SeedAPIKey(t *testing.T, s *store.Store, tenantID, rawKey string, scopes ...string) *models.APIKey {
	t.Helper()
	k := &models.APIKey{
		TenantID: tenantID,
		KeyHash:  HashKey(t, rawKey),
		Scopes:   scopes,
	}
	if err := s.CreateAPIKey(context.Background(), k); err != nil {
		t.Fatal(err)
	}
	return k
}
