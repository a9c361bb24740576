package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN == "" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Settlements.Currency != "USD" {
		t.Errorf("currency = %q, want USD", cfg.Settlements.Currency)
	}
	if !cfg.NotificationsEnabled() {
		t.Error("notifications should default to enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate in development: %v", err)
	}
}

func TestParseFile(t *testing.T) {
	cfg, err := Parse([]byte(`
env: production
server:
  port: 9000
  shutdown_timeout: 5s
database:
  driver: postgres
  dsn: postgres://billo@localhost/billo?sslmode=disable
auth:
  jwt_secret: s3cret
notifications:
  enabled: false
settlements:
  currency: EUR
log:
  format: json
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Addr() != ":9000" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.ShutdownTimeout().Seconds() != 5 {
		t.Errorf("shutdown timeout = %v", cfg.ShutdownTimeout())
	}
	if cfg.NotificationsEnabled() {
		t.Error("notifications should be disabled")
	}
	if cfg.Settlements.Currency != "EUR" {
		t.Errorf("currency = %q", cfg.Settlements.Currency)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"unknown driver", "database:\n  driver: mysql\n  dsn: x\n", true},
		{"postgres without dsn", "database:\n  driver: postgres\n", true},
		{"production without secret", "env: production\n", true},
		{"production with secret", "env: production\nauth:\n  jwt_secret: x\n", false},
		{"bad duration", "server:\n  shutdown_timeout: soon\n", true},
		{"bad log format", "log:\n  format: xml\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			err = cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BILLO_ENV", "PORT", "DB_DRIVER", "DB_DSN", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "billo.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7000\nlog:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	t.Setenv("BILLO_CONFIG", path)
	t.Setenv("PORT", "7100")
	t.Setenv("DB_DSN", filepath.Join(dir, "test.db"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("port = %d, want env override 7100", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug from file", cfg.Log.Level)
	}
	if cfg.Database.DSN != filepath.Join(dir, "test.db") {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("BILLO_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default", cfg.Server.Port)
	}
}
