package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Auth        AuthConfig        `mapstructure:"auth" validate:"required"`
	Reward      RewardConfig      `mapstructure:"reward"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	Progression ProgressionConfig `mapstructure:"progression"`
	Social      SocialConfig      `mapstructure:"social"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost" validate:"omitempty,gte=4,lte=31"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
}

// RewardConfig contains optional overrides for the XP reward calculation.
// A zero value leaves the corresponding built-in default in place, so
// deployments only set the knobs they want to tune.
type RewardConfig struct {
	PassingScorePct    float64 `mapstructure:"passing_score_pct" validate:"omitempty,gt=0,lte=100"`
	BaselineWPM        float64 `mapstructure:"baseline_wpm" validate:"omitempty,gt=0"`
	ComplexityDivisor  float64 `mapstructure:"complexity_divisor" validate:"omitempty,gt=0"`
	PerfectBonusFactor float64 `mapstructure:"perfect_bonus_factor" validate:"omitempty,gt=0"`
}

// LedgerConfig contains settings for the transaction manager.
type LedgerConfig struct {
	// MaxRetries bounds how many times a balance mutation is retried when
	// the database reports a serialization conflict before the failure is
	// surfaced to the caller.
	MaxRetries int `mapstructure:"max_retries" validate:"omitempty,gte=1,lte=10"`
}

// ProgressionConfig contains settings for quiz attempt recording and the
// reading speed ratchet.
type ProgressionConfig struct {
	BonusXP               int64 `mapstructure:"bonus_xp" validate:"omitempty,gt=0"`
	ContentTimeoutSeconds int   `mapstructure:"content_timeout_seconds" validate:"omitempty,gt=0"`
}

// SocialConfig contains the XP costs of social actions. Interaction tiers
// price both positive reactions and moderation reports; the author's share
// of a positive reaction is fixed at half the spent amount, rounded down.
type SocialConfig struct {
	CommentCostXP int64 `mapstructure:"comment_cost_xp" validate:"omitempty,gt=0"`
	ReplyCostXP   int64 `mapstructure:"reply_cost_xp" validate:"omitempty,gt=0"`
	BronzeCostXP  int64 `mapstructure:"bronze_cost_xp" validate:"omitempty,gt=0"`
	SilverCostXP  int64 `mapstructure:"silver_cost_xp" validate:"omitempty,gt=0"`
	GoldCostXP    int64 `mapstructure:"gold_cost_xp" validate:"omitempty,gt=0"`
}

// MonitorConfig contains settings for the background economy monitor.
type MonitorConfig struct {
	ReconcileIntervalSeconds int   `mapstructure:"reconcile_interval_seconds" validate:"omitempty,gt=0"`
	VelocityWindowMinutes    int   `mapstructure:"velocity_window_minutes" validate:"omitempty,gt=0"`
	VelocityLimitXP          int64 `mapstructure:"velocity_limit_xp" validate:"omitempty,gt=0"`
	FreezeOnAnomaly          bool  `mapstructure:"freeze_on_anomaly"`
}
