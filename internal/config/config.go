package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	MySQL      DatabaseConfig   `mapstructure:"mysql"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Pagination PaginationConfig `mapstructure:"pagination"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	// ServiceTokens are capabilities held by trusted first-party services.
	// A request presenting one of these in X-Service-Token may write without
	// further checks.
	ServiceTokens []string `mapstructure:"service_tokens"`
	// StaffOnlyCreate additionally restricts POST /customers/ to staff
	// accounts (endpoint-specific policy variant).
	StaffOnlyCreate bool `mapstructure:"staff_only_create"`
}

// RateLimitConfig holds one independent bucket per caller class and operation
// class.
type RateLimitConfig struct {
	Anonymous     ClassLimits `mapstructure:"anonymous"`
	Authenticated ClassLimits `mapstructure:"authenticated"`
}

type ClassLimits struct {
	General BucketLimit `mapstructure:"general"`
	Read    BucketLimit `mapstructure:"read"`
	Write   BucketLimit `mapstructure:"write"`
	Stats   BucketLimit `mapstructure:"stats"`
}

type BucketLimit struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type PaginationConfig struct {
	PageSize    int `mapstructure:"page_size"`
	MaxPageSize int `mapstructure:"max_page_size"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (CUSTAPI_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (CUSTAPI_*)
	v.SetEnvPrefix("CUSTAPI")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
