package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port int `mapstructure:"port"`

	LocationAPI struct {
		URL     string        `mapstructure:"url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"location_api"`

	Pagination struct {
		DefaultLimit int `mapstructure:"default_limit"`
		MaxLimit     int `mapstructure:"max_limit"`
	} `mapstructure:"pagination"`

	Health struct {
		Schedule string `mapstructure:"schedule"`
	} `mapstructure:"health"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Auth struct {
		JWTPublicKeyPath string `mapstructure:"jwt_public_key_path"`
	} `mapstructure:"auth"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`

	RateLimit struct {
		RPS   int `mapstructure:"rps"`
		Burst int `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`

	CORS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`

	Tracing struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"tracing"`
}

func (c *Config) ListenAddr() string { return fmt.Sprintf(":%d", c.Port) }

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8099)
	v.SetDefault("location_api.url", "http://localhost:3000")
	v.SetDefault("location_api.timeout", 10*time.Second)
	v.SetDefault("pagination.default_limit", 100)
	v.SetDefault("pagination.max_limit", 1000)
	v.SetDefault("health.schedule", "@every 30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("auth.jwt_public_key_path", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("rate_limit.rps", 2)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("tracing.otlp_endpoint", "")
}

// Load reads configPath (optional, YAML) and lets environment variables
// override any key, e.g. LOCATION_API_URL for location_api.url.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LocationAPI.URL = strings.TrimRight(strings.TrimSpace(cfg.LocationAPI.URL), "/")
	if cfg.LocationAPI.URL == "" {
		return nil, fmt.Errorf("location_api.url is required")
	}
	if cfg.Pagination.DefaultLimit <= 0 {
		return nil, fmt.Errorf("pagination.default_limit must be positive")
	}
	if cfg.Pagination.MaxLimit < cfg.Pagination.DefaultLimit {
		cfg.Pagination.MaxLimit = cfg.Pagination.DefaultLimit
	}
	return &cfg, nil
}
