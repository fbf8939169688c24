package internal

import (
	"strings"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if cfg.Storage.Mode != StorageModeSQLite {
		t.Errorf("mode = %q, want %q", cfg.Storage.Mode, StorageModeSQLite)
	}
}

func TestStorageConfig_EmptyModeDefaultsSQLite(t *testing.T) {
	cfg := StorageConfig{SQLite: SQLiteConfig{Path: "./x.db"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to sqlite: %v", err)
	}
	if cfg.Mode != StorageModeSQLite {
		t.Errorf("mode = %q, want %q", cfg.Mode, StorageModeSQLite)
	}
}

func TestStorageConfig_InvalidMode(t *testing.T) {
	cfg := StorageConfig{Mode: "postgres"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestStorageConfig_SQLiteNeedsPath(t *testing.T) {
	cfg := StorageConfig{Mode: StorageModeSQLite}
	if err := cfg.Validate(); err == nil {
		t.Fatal("sqlite mode without path should fail")
	}
}

func TestStorageConfig_APINeedsURLAndKey(t *testing.T) {
	cfg := StorageConfig{Mode: StorageModeAPI, API: BackendConfig{BaseURL: "https://api.example.com"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("api mode without key should fail")
	}

	cfg.API.Key = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("api mode with url and key should pass: %v", err)
	}
}

func TestConfig_StdioNeedsAuthKeyInSQLiteMode(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.MCP.Stdio = true
	err := cfg.Validate()
	if err == nil {
		t.Fatal("stdio in sqlite mode without auth.key should fail")
	}
	if !strings.Contains(err.Error(), "auth.key") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.Auth.Key = "raw-key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("with auth.key: %v", err)
	}
}

func TestConfig_StdioInAPIModeNeedsNoAuthKey(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.MCP.Stdio = true
	cfg.Storage.Mode = StorageModeAPI
	cfg.Storage.API = BackendConfig{BaseURL: "https://api.example.com", Key: "secret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("api mode binds the tenant via the backend key: %v", err)
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
}
