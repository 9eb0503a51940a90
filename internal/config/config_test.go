package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  port: 9090
  public_base_url: https://sign.example.com
identity:
  issuer: https://id.example.com
  audience: esign
database:
  dsn_env: TEST_DSN
storage:
  endpoint: minio.internal:9000
  bucket: contracts
mail:
  host: smtp.example.com
  from_address: agreements@example.com
  from_name: Agreements
tokens:
  ttl: 720h
ratelimit:
  read:
    requests: 120
    window: 1m
  mutate:
    requests: 5
    window: 1m
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Tokens.TTL != 720*time.Hour {
		t.Errorf("Tokens.TTL = %v, want 720h", cfg.Tokens.TTL)
	}
	if cfg.RateLimit.Mutate.Requests != 5 {
		t.Errorf("RateLimit.Mutate.Requests = %d, want 5", cfg.RateLimit.Mutate.Requests)
	}
	// Defaults survive where the file is silent.
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Database.MaxOpenConns = %d, want default 25", cfg.Database.MaxOpenConns)
	}
	if cfg.Tokens.DocumentURLTTL != time.Hour {
		t.Errorf("Tokens.DocumentURLTTL = %v, want default 1h", cfg.Tokens.DocumentURLTTL)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}

func TestLoad_missingRequiredFields(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	if err == nil {
		t.Fatal("Load() should fail validation")
	}
	for _, want := range []string{"public_base_url", "identity.issuer", "storage.endpoint", "mail.host"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestLoad_envOverride(t *testing.T) {
	t.Setenv("ESIGN_SERVER_PORT", "7070")
	t.Setenv("ESIGN_LOG_LEVEL", "debug")
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestValidate_portRange(t *testing.T) {
	cfg := Defaults()
	cfg.Server.PublicBaseURL = "https://x"
	cfg.Identity.Issuer = "https://id"
	cfg.Storage.Endpoint = "minio:9000"
	cfg.Storage.Bucket = "b"
	cfg.Mail.Host = "smtp"
	cfg.Mail.FromAddress = "a@b.c"
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject port 0")
	}
}
