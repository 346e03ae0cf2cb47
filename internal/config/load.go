package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables use the READQUEST_ prefix with
// underscores separating nested keys (e.g. READQUEST_SERVER_PORT maps to
// server.port) and take precedence over values from the config file.
// Returns a populated Config struct or an error if loading or validation
// fails.
func Load() (*Config, error) {
	v := viper.New()

	// Register defaults for every key. Viper only considers keys it knows
	// about when unmarshalling, so even required settings without a
	// sensible default get an empty placeholder here.
	setDefaults(v)

	// Environment variables override everything else
	v.SetEnvPrefix("READQUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// An optional config.yaml in the working directory supplements the
	// environment. Its absence is not an error.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers a default for every configuration key.
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	// Database has no usable default; the URL must come from the
	// environment or a config file
	v.SetDefault("database.url", "")

	// Auth
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)

	// Reward calculation overrides. Zero means "use the built-in default"
	v.SetDefault("reward.passing_score_pct", 0)
	v.SetDefault("reward.baseline_wpm", 0)
	v.SetDefault("reward.complexity_divisor", 0)
	v.SetDefault("reward.perfect_bonus_factor", 0)

	// Transaction manager
	v.SetDefault("ledger.max_retries", 3)

	// Speed progression
	v.SetDefault("progression.bonus_xp", 50)
	v.SetDefault("progression.content_timeout_seconds", 3)

	// Social action costs
	v.SetDefault("social.comment_cost_xp", 100)
	v.SetDefault("social.reply_cost_xp", 50)
	v.SetDefault("social.bronze_cost_xp", 5)
	v.SetDefault("social.silver_cost_xp", 15)
	v.SetDefault("social.gold_cost_xp", 30)

	// Economy monitor
	v.SetDefault("monitor.reconcile_interval_seconds", 300)
	v.SetDefault("monitor.velocity_window_minutes", 60)
	v.SetDefault("monitor.velocity_limit_xp", 10000)
	v.SetDefault("monitor.freeze_on_anomaly", false)
}

// validateConfig checks the loaded configuration against the validation
// rules declared on the Config struct tags.
func validateConfig(cfg *Config) error {
	validate := validator.New()
	return validate.Struct(cfg)
}
