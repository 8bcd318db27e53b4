// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"testing"
)

func TestParseFlags_EnvVars(t *testing.T) {
	// Set env vars
	os.Setenv("PORT", "9000")
	os.Setenv("DATABASE_URL", "postgres://test")
	os.Setenv("TOKEN_SALT", "test-salt")
	os.Setenv("XAI_API_KEY", "test-key")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected default database type sqlite, got %s", cfg.DatabaseType)
	}
	if cfg.XAIBaseURL != "https://api.x.ai/v1" {
		t.Errorf("expected default API base, got %s", cfg.XAIBaseURL)
	}
	if cfg.ChatModel != "grok-2-latest" {
		t.Errorf("expected default chat model, got %s", cfg.ChatModel)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	os.Setenv("PORT", "9000")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-token-salt", "s1", "-api-key", "k1"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
}

func TestParseFlags_MissingSecrets(t *testing.T) {
	os.Clearenv()

	if _, err := ParseFlags([]string{"-d", "file:test.db"}); err == nil {
		t.Error("expected error when TOKEN_SALT is missing")
	}

	if _, err := ParseFlags([]string{"-d", "file:test.db", "-token-salt", "s1"}); err == nil {
		t.Error("expected error when XAI_API_KEY is missing")
	}
}

func TestParseFlags_BadDatabaseType(t *testing.T) {
	os.Clearenv()

	_, err := ParseFlags([]string{"-d", "file:test.db", "-t", "mysql", "-token-salt", "s1", "-api-key", "k1"})
	if err == nil {
		t.Error("expected error for unsupported database type")
	}
}
