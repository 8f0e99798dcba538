package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the chat widget and the stub backend
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Store    StoreConfig    `mapstructure:"store"`
	Identity IdentityConfig `mapstructure:"identity"`
	Server   ServerConfig   `mapstructure:"server"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Database DatabaseConfig `mapstructure:"database"`
}

// BackendConfig points the widget at the chatbot backend. An empty base
// URL is a legal configuration; the widget surfaces it as a configuration
// error instead of attempting network calls.
type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	HydrateTimeout int    `mapstructure:"hydrate_timeout_seconds"`
}

// StoreConfig selects where the widget persists its session identifier
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisTTL  int    `mapstructure:"redis_ttl_hours"`
}

// IdentityConfig seeds the identity envelope for the terminal client
type IdentityConfig struct {
	UserID    string `mapstructure:"user_id"`
	UserName  string `mapstructure:"user_name"`
	UserEmail string `mapstructure:"user_email"`
}

// ServerConfig holds stub backend server configuration
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// AdminConfig holds admin authentication configuration
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DatabaseConfig holds stub backend database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("CHATWIDGET")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("backend.hydrate_timeout_seconds", 10)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "./data/chatwidget.db")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_ttl_hours", 24)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("admin.api_key", "")

	v.SetDefault("database.path", "./data/chatbotd.db")
}

// Address returns the stub server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// HydrateTimeout returns the configured hydration deadline
func (c *Config) HydrateTimeout() time.Duration {
	if c.Backend.HydrateTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Backend.HydrateTimeout) * time.Second
}
