package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		path := writeConfig(t, `
port: 9090
debug: true
database:
  type: postgres
  dsn: "host=localhost user=gk dbname=gk"
extractor:
  prefix: AIzaSy
  min_length: 30
validator:
  endpoint: "https://api-proxy.example/gemini/v1beta/models"
  timeout: 15s
  batch_size: 5
scheduler:
  revalidate_spec: "@daily"
`)
		config, warning, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if warning != "" {
			t.Errorf("Expected no warning, got %q", warning)
		}
		if config.Port != 9090 {
			t.Errorf("Expected port 9090, got %d", config.Port)
		}
		if !config.Debug {
			t.Error("Expected debug to be true")
		}
		if config.Extractor.MinLength != 30 || config.Extractor.MaxLength != 0 {
			t.Errorf("Expected open-ended length >= 30, got %d..%d", config.Extractor.MinLength, config.Extractor.MaxLength)
		}
		if config.Validator.Timeout != 15*time.Second {
			t.Errorf("Expected 15s timeout, got %s", config.Validator.Timeout)
		}
		if config.Validator.BatchSize != 5 {
			t.Errorf("Expected batch size 5, got %d", config.Validator.BatchSize)
		}
		if config.Validator.Mode != "rest" {
			t.Errorf("Expected default mode rest, got %s", config.Validator.Mode)
		}
		if config.Scheduler.RevalidateSpec != "@daily" {
			t.Errorf("Expected @daily, got %s", config.Scheduler.RevalidateSpec)
		}
	})

	t.Run("non-existent file uses defaults", func(t *testing.T) {
		config, warning, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if config.Database.Type != "sqlite" {
			t.Errorf("Expected sqlite fallback, got %s", config.Database.Type)
		}
		if config.Extractor.Prefix != DefaultKeyPrefix || config.Extractor.MinLength != DefaultKeyLength || config.Extractor.MaxLength != DefaultKeyLength {
			t.Errorf("Unexpected extractor defaults: %+v", config.Extractor)
		}
		if config.Validator.Endpoint != DefaultEndpoint {
			t.Errorf("Expected default endpoint, got %s", config.Validator.Endpoint)
		}
		if config.Port != DefaultPort {
			t.Errorf("Expected default port, got %d", config.Port)
		}
		if !strings.Contains(warning, "batch_size") || !strings.Contains(warning, "sqlite") {
			t.Errorf("Expected defaulting warnings, got %q", warning)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "port: 8080\n  debug: true\n\tbad")
		_, _, err := LoadConfig(path)
		if err == nil {
			t.Error("Expected an error for invalid YAML, but got nil")
		}
	})

	t.Run("unsupported database type", func(t *testing.T) {
		path := writeConfig(t, "database:\n  type: oracle\n  dsn: x\n")
		_, _, err := LoadConfig(path)
		if err == nil {
			t.Error("Expected a validation error, but got nil")
		}
	})

	t.Run("max length below min length", func(t *testing.T) {
		path := writeConfig(t, "extractor:\n  min_length: 33\n  max_length: 20\n")
		_, _, err := LoadConfig(path)
		if err == nil {
			t.Error("Expected a validation error, but got nil")
		}
	})

	t.Run("unknown validator mode", func(t *testing.T) {
		path := writeConfig(t, "validator:\n  mode: grpc\n")
		_, _, err := LoadConfig(path)
		if err == nil {
			t.Error("Expected a validation error, but got nil")
		}
	})
}

func TestConfigPriority(t *testing.T) {
	path := writeConfig(t,
		"port: 8000\n"+
			"debug: false\n"+
			"database:\n"+
			"  type: \"sqlite\"\n"+
			"  dsn: \"file-dsn\"\n"+
			"admin:\n"+
			"  password: \"file-password\"\n")

	t.Setenv("GEMINIKEY_PORT", "9000")
	t.Setenv("GEMINIKEY_DEBUG", "true")
	t.Setenv("GEMINIKEY_DATABASE_TYPE", "mysql")
	t.Setenv("GEMINIKEY_DATABASE_DSN", "env-dsn")
	t.Setenv("GEMINIKEY_ADMIN_PASSWORD", "env-password")
	t.Setenv("GEMINIKEY_EXTRACTOR_MIN_LENGTH", "30")
	t.Setenv("GEMINIKEY_VALIDATOR_BATCH_SIZE", "20")

	config, _, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if config.Port != 9000 {
		t.Errorf("Expected port from env (9000), but got %d", config.Port)
	}
	if !config.Debug {
		t.Error("Expected debug from env (true), but got false")
	}
	if config.Database.Type != "mysql" {
		t.Errorf("Expected db type from env ('mysql'), but got %s", config.Database.Type)
	}
	if config.Database.DSN != "env-dsn" {
		t.Errorf("Expected db dsn from env ('env-dsn'), but got %s", config.Database.DSN)
	}
	if config.Admin.Password != "env-password" {
		t.Errorf("Expected admin password from env ('env-password'), but got %s", config.Admin.Password)
	}
	if config.Extractor.MinLength != 30 {
		t.Errorf("Expected min length from env (30), but got %d", config.Extractor.MinLength)
	}
	if config.Validator.BatchSize != 20 || config.Validator.MaxBatchKeys != DefaultMaxBatchKeys {
		t.Errorf("Unexpected batch sizes %d/%d", config.Validator.BatchSize, config.Validator.MaxBatchKeys)
	}
}

func TestConfigEnvInvalidInt(t *testing.T) {
	t.Setenv("GEMINIKEY_PORT", "not-a-port")
	_, _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("Expected an error for a non-numeric port, but got nil")
	}
}
