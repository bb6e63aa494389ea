package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL         string        `mapstructure:"database_url"`
	RedisURL            string        `mapstructure:"redis_url"`
	JWTSecret           string        `mapstructure:"jwt_secret"`
	TokenTTL            time.Duration `mapstructure:"token_ttl"`
	ServerPort          string        `mapstructure:"server_port"`
	WhatsAppAPIURL      string        `mapstructure:"whatsapp_api_url"`
	WhatsAppUsername    string        `mapstructure:"whatsapp_username"`
	WhatsAppPassword    string        `mapstructure:"whatsapp_password"`
	WhatsAppPath        string        `mapstructure:"whatsapp_path"`
	WhatsAppCountryCode string        `mapstructure:"whatsapp_country_code"`
	LogLevel            string        `mapstructure:"log_level"`
	LogFormat           string        `mapstructure:"log_format"`
	DefaultCommission   float64       `mapstructure:"default_commission"`
	CurrencySymbol      string        `mapstructure:"currency_symbol"`
	SubmissionTTL       time.Duration `mapstructure:"submission_ttl"`
	ProgressCacheTTL    time.Duration `mapstructure:"progress_cache_ttl"`
	AdminUsername       string        `mapstructure:"admin_username"`
	AdminEmail          string        `mapstructure:"admin_email"`
	AdminPassword       string        `mapstructure:"admin_password"`
	Catalog             CatalogConfig `mapstructure:"catalog"`
}

type CatalogConfig struct {
	Defaults []CatalogEntry `mapstructure:"defaults"`
}

// CatalogEntry is a service type seeded into an empty catalog.
type CatalogEntry struct {
	Name        string  `mapstructure:"name"`
	Icon        string  `mapstructure:"icon"`
	Description string  `mapstructure:"description"`
	BasePrice   float64 `mapstructure:"base_price"`
}

// WhatsAppEnabled reports whether the outbound gateway is configured.
func (c *Config) WhatsAppEnabled() bool {
	return c.WhatsAppAPIURL != "" && c.WhatsAppPath != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "redis://localhost:6379")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("server_port", "8080")
	v.SetDefault("whatsapp_api_url", "")
	v.SetDefault("whatsapp_username", "")
	v.SetDefault("whatsapp_password", "")
	v.SetDefault("whatsapp_path", "")
	v.SetDefault("whatsapp_country_code", "1")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("default_commission", 25.0)
	v.SetDefault("currency_symbol", "$")
	v.SetDefault("submission_ttl", 30*time.Second)
	v.SetDefault("progress_cache_ttl", 5*time.Minute)
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_email", "admin@localhost")
	v.SetDefault("admin_password", "")
}

// Load reads .env, an optional config.yaml and the environment, in increasing
// order of precedence.
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.DefaultCommission < 0 || c.DefaultCommission > 100 {
		return fmt.Errorf("DEFAULT_COMMISSION must be between 0 and 100, got %v", c.DefaultCommission)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}
