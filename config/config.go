package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Trace    TraceConfig    `mapstructure:"trace"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn" validate:"required"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret" validate:"required"`
	ExpireHours int    `mapstructure:"expire_hours" validate:"gt=0"`
}

// PolicyConfig gates and tunes the post policy feature.
type PolicyConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MaxGroupSize caps the size of groups eligible for policy acceptance
	// and display.
	MaxGroupSize int `mapstructure:"max_group_size" validate:"gt=0"`
	// RestrictToStaffPosts limits policy declarations and acceptance to
	// posts authored by staff.
	RestrictToStaffPosts bool `mapstructure:"restrict_to_staff_posts"`
	// SweepInterval is how often the renewal sweeper scans for due policies.
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
	// ReminderLead is how long before the renewal boundary the per-cycle
	// reminder fires.
	ReminderLead time.Duration `mapstructure:"reminder_lead" validate:"gt=0"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TraceConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// Load reads config.yaml (working directory or ./config) with POLICY_*
// environment overrides, fills defaults and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:postpolicy.db?cache=shared")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "change-me")
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("policy.enabled", true)
	v.SetDefault("policy.max_group_size", 250)
	v.SetDefault("policy.restrict_to_staff_posts", false)
	v.SetDefault("policy.sweep_interval", time.Hour)
	v.SetDefault("policy.reminder_lead", 24*time.Hour)

	v.SetEnvPrefix("POLICY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// missing config file is fine, env + defaults carry it
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
