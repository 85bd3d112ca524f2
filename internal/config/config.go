package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// DatabaseConfig holds the database connection information.
type DatabaseConfig struct {
	Type string `yaml:"type" validate:"required,oneof=sqlite postgres mysql"`
	DSN  string `yaml:"dsn" validate:"required"`
}

// ExtractorConfig describes the key pattern searched for in pasted text.
type ExtractorConfig struct {
	Prefix    string `yaml:"prefix" validate:"required"`
	MinLength int    `yaml:"min_length" validate:"gte=1"`
	// MaxLength of 0 accepts any trailing length of at least MinLength.
	MaxLength int `yaml:"max_length" validate:"omitempty,gtefield=MinLength"`
}

// ValidatorConfig holds configuration for the remote key check.
type ValidatorConfig struct {
	Mode         string        `yaml:"mode" validate:"oneof=rest sdk"`
	Endpoint     string        `yaml:"endpoint" validate:"required,url"`
	ClientID     string        `yaml:"client_id"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	BatchSize    int           `yaml:"batch_size" validate:"gte=1"`
	MaxBatchKeys int           `yaml:"max_batch_keys" validate:"gtefield=BatchSize"`
}

// AdminConfig holds configuration for protecting the API.
type AdminConfig struct {
	Password string `yaml:"password"`
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	// RevalidateSpec is a cron spec; empty disables scheduled re-validation.
	RevalidateSpec string `yaml:"revalidate_spec"`
}

// LogConfig controls optional file output for the logger.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

// Config holds the configuration for the key validator service.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Validator ValidatorConfig `yaml:"validator"`
	Admin     AdminConfig     `yaml:"admin"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
	Port      int             `yaml:"port" validate:"gte=1,lte=65535"`
	Debug     bool            `yaml:"debug"`
}

const (
	DefaultEndpoint     = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultClientID     = "geminikey-validator/1.0.0"
	DefaultKeyPrefix    = "AIzaSy"
	DefaultKeyLength    = 33
	DefaultBatchSize    = 10
	DefaultMaxBatchKeys = 100
	DefaultPort         = 8080
)

var validate = validator.New()

// LoadConfig reads and parses the configuration file. It returns the config and a potential warning message.
var LoadConfig = func(path string) (*Config, string, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err == nil {
		err = yaml.Unmarshal(data, &config)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, "", fmt.Errorf("failed to read config file: %w", err)
	}
	// A missing file is fine: defaults and environment variables still apply.

	if err := applyEnv(&config); err != nil {
		return nil, "", err
	}
	warnings := applyDefaults(&config)

	if err := validate.Struct(&config); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, strings.Join(warnings, "; "), nil
}

// applyEnv overrides file values with GEMINIKEY_* environment variables.
func applyEnv(config *Config) error {
	if dsn := os.Getenv("GEMINIKEY_DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if dbType := os.Getenv("GEMINIKEY_DATABASE_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if password := os.Getenv("GEMINIKEY_ADMIN_PASSWORD"); password != "" {
		config.Admin.Password = password
	}
	if endpoint := os.Getenv("GEMINIKEY_VALIDATOR_ENDPOINT"); endpoint != "" {
		config.Validator.Endpoint = endpoint
	}
	if mode := os.Getenv("GEMINIKEY_VALIDATOR_MODE"); mode != "" {
		config.Validator.Mode = mode
	}
	if debug := os.Getenv("GEMINIKEY_DEBUG"); debug != "" {
		config.Debug = (debug == "true")
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"GEMINIKEY_PORT", &config.Port},
		{"GEMINIKEY_EXTRACTOR_MIN_LENGTH", &config.Extractor.MinLength},
		{"GEMINIKEY_EXTRACTOR_MAX_LENGTH", &config.Extractor.MaxLength},
		{"GEMINIKEY_VALIDATOR_BATCH_SIZE", &config.Validator.BatchSize},
	}
	for _, v := range ints {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", v.name, raw, err)
		}
		*v.dst = n
	}
	return nil
}

func applyDefaults(config *Config) []string {
	var warnings []string

	if config.Database.Type == "" && config.Database.DSN == "" {
		config.Database.Type = "sqlite"
		config.Database.DSN = "geminikey.db"
		warnings = append(warnings, "database not configured, using sqlite file geminikey.db")
	}
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Extractor.Prefix == "" {
		config.Extractor.Prefix = DefaultKeyPrefix
	}
	if config.Extractor.MinLength == 0 {
		config.Extractor.MinLength = DefaultKeyLength
		if config.Extractor.MaxLength == 0 {
			config.Extractor.MaxLength = DefaultKeyLength
		}
	}
	if config.Validator.Mode == "" {
		config.Validator.Mode = "rest"
	}
	if config.Validator.Endpoint == "" {
		config.Validator.Endpoint = DefaultEndpoint
	}
	if config.Validator.ClientID == "" {
		config.Validator.ClientID = DefaultClientID
	}
	if config.Validator.Timeout == 0 {
		config.Validator.Timeout = 60 * time.Second
	}
	if config.Validator.BatchSize == 0 {
		config.Validator.BatchSize = DefaultBatchSize
		warnings = append(warnings, fmt.Sprintf("validator.batch_size not set, using default value of %d", DefaultBatchSize))
	}
	if config.Validator.MaxBatchKeys == 0 {
		config.Validator.MaxBatchKeys = DefaultMaxBatchKeys
		if config.Validator.MaxBatchKeys < config.Validator.BatchSize {
			config.Validator.MaxBatchKeys = config.Validator.BatchSize
		}
	}
	return warnings
}
