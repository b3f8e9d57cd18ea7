package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "Mercato Local"
	// TrialSweepIntervalSecondsKey controls the trial sweep interval in seconds.
	TrialSweepIntervalSecondsKey = "TRIAL_SWEEP_INTERVAL_SECONDS"
	// AntiSpamRedisEnabledKey toggles Redis-backed impression suppression.
	AntiSpamRedisEnabledKey = "ANTISPAM_REDIS_ENABLED"
	// AntiSpamRedisAddrKey defines the Redis address for impression suppression.
	AntiSpamRedisAddrKey = "ANTISPAM_REDIS_ADDR"
	// AntiSpamRedisPasswordKey defines the Redis password for impression suppression.
	AntiSpamRedisPasswordKey = "ANTISPAM_REDIS_PASSWORD"
	// AntiSpamRedisDBKey defines the Redis DB index for impression suppression.
	AntiSpamRedisDBKey = "ANTISPAM_REDIS_DB"
	// AntiSpamRedisPrefixKey defines the Redis key prefix for impression suppression.
	AntiSpamRedisPrefixKey = "ANTISPAM_REDIS_PREFIX"
	// DefaultTrialSweepIntervalSeconds is the fallback sweep interval (seconds).
	DefaultTrialSweepIntervalSeconds = 3600
	// DefaultAntiSpamRedisPrefix is the fallback Redis key prefix.
	DefaultAntiSpamRedisPrefix = "mercato:imp"
)
