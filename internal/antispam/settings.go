package antispam

import (
	"strings"

	internalsettings "github.com/mercato-local/marketplace/internal/settings"
)

// SettingsConfig captures anti-spam settings stored in DB config.
type SettingsConfig struct {
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// LoadSettingsConfig loads the current anti-spam settings snapshot.
func LoadSettingsConfig() SettingsConfig {
	cfg := SettingsConfig{RedisPrefix: internalsettings.DefaultAntiSpamRedisPrefix}

	if enabled, ok := internalsettings.BoolValue(internalsettings.AntiSpamRedisEnabledKey); ok {
		cfg.RedisEnabled = enabled
	}
	if addr, ok := internalsettings.StringValue(internalsettings.AntiSpamRedisAddrKey); ok {
		cfg.RedisAddr = addr
	}
	if password, ok := internalsettings.StringValue(internalsettings.AntiSpamRedisPasswordKey); ok {
		cfg.RedisPassword = password
	}
	if db, ok := internalsettings.NonNegativeIntValue(internalsettings.AntiSpamRedisDBKey); ok {
		cfg.RedisDB = db
	}
	if prefix, ok := internalsettings.StringValue(internalsettings.AntiSpamRedisPrefixKey); ok && prefix != "" {
		cfg.RedisPrefix = prefix
	}

	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)
	cfg.RedisPassword = strings.TrimSpace(cfg.RedisPassword)
	cfg.RedisPrefix = strings.TrimSpace(cfg.RedisPrefix)
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = internalsettings.DefaultAntiSpamRedisPrefix
	}
	if cfg.RedisDB < 0 {
		cfg.RedisDB = 0
	}
	return cfg
}
