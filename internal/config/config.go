package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized at startup. Each one overrides the
// corresponding config-file field.
const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
)

// defaultConfigFile is where the marketplace looks for its config when no
// path is given. The init server writes this file on first run.
const defaultConfigFile = "./config.yaml"

// defaultJWTExpiry keeps seller and admin sessions alive for a month when
// the config says nothing else.
const defaultJWTExpiry = 30 * 24 * time.Hour

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies the default.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = defaultConfigFile
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// marketplaceFile maps the YAML fields of the marketplace config file. The
// flat `database-dsn` form and the nested `database.dsn` form are both
// accepted; jwt.expiry is a Go duration string like "720h".
type marketplaceFile struct {
	DatabaseDSN string `yaml:"database-dsn"`
	Database    struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	JWT struct {
		Secret string `yaml:"secret"`
		Expiry string `yaml:"expiry"`
	} `yaml:"jwt"`
}

// readConfigFile parses the YAML config at the path.
func readConfigFile(configPath string) (marketplaceFile, error) {
	var cfg marketplaceFile
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		return cfg, fmt.Errorf("read config file: %w", errRead)
	}
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return cfg, fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	return cfg, nil
}

// LoadDatabaseDSN resolves the database DSN: the DB_CONNECTION environment
// variable wins, then the config file's database fields.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	cfg, errFile := readConfigFile(configPath)
	if errFile != nil {
		return "", errFile
	}
	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// LoadJWTConfig resolves JWT settings from the config file with environment
// overrides. A missing or unparseable file degrades to defaults because the
// DSN may have come from the environment alone.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	result := JWTConfig{Expiry: defaultJWTExpiry}

	if cfg, errFile := readConfigFile(configPath); errFile == nil {
		result.Secret = strings.TrimSpace(cfg.JWT.Secret)
		if expiry, errParse := time.ParseDuration(strings.TrimSpace(cfg.JWT.Expiry)); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	return result, nil
}
