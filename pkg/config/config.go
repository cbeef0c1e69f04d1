package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration shared by both the
// api-server and bot binaries.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Solana        SolanaConfig        `mapstructure:"solana"`
	Custody       CustodyConfig       `mapstructure:"custody"`
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	KeyManagement KeyManagementConfig `mapstructure:"key_management"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the credential registry backend.
// Valid backends: "memory", "postgres", "redis".
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// RedisConfig contains Redis connection settings for the redis registry backend.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SolanaConfig contains ledger RPC settings.
type SolanaConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	Cluster             string        `mapstructure:"cluster"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	ConfirmationPoll    time.Duration `mapstructure:"confirmation_poll"`
}

// CustodyConfig contains settings for the external wallet provisioning provider.
// The API key itself is never placed in the config file; APIKeyEnv names the
// environment variable it is read from at startup.
type CustodyConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKeyEnv      string        `mapstructure:"api_key_env"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// TelegramConfig contains chat surface settings. The bot token is supplied via
// the environment variable named by TokenEnv.
type TelegramConfig struct {
	TokenEnv    string `mapstructure:"token_env"`
	PollTimeout int    `mapstructure:"poll_timeout"`
	Debug       bool   `mapstructure:"debug"`
}

// KeyManagementConfig names the env var holding the base64 master key used to
// encrypt user shares at rest.
type KeyManagementConfig struct {
	MasterKeyEnv string `mapstructure:"master_key_env"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Storage defaults
	viper.SetDefault("storage.backend", "memory")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "wallet_middleware")

	// Redis defaults
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)
	viper.SetDefault("redis.dial_timeout", "5s")
	viper.SetDefault("redis.read_timeout", "3s")
	viper.SetDefault("redis.write_timeout", "3s")

	// Solana defaults
	viper.SetDefault("solana.rpc_url", "https://api.devnet.solana.com")
	viper.SetDefault("solana.cluster", "devnet")
	viper.SetDefault("solana.confirmation_timeout", "60s")
	viper.SetDefault("solana.confirmation_poll", "2s")

	// Custody defaults
	viper.SetDefault("custody.api_key_env", "CUSTODY_API_KEY")
	viper.SetDefault("custody.request_timeout", "30s")

	// Telegram defaults
	viper.SetDefault("telegram.token_env", "TELEGRAM_BOT_TOKEN")
	viper.SetDefault("telegram.poll_timeout", 30)

	// Key management defaults
	viper.SetDefault("key_management.master_key_env", "WALLET_MASTER_KEY")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	switch config.Storage.Backend {
	case "memory", "postgres", "redis":
	default:
		return fmt.Errorf("storage.backend must be one of memory, postgres, redis")
	}
	if config.Storage.Backend == "postgres" && config.Database.Host == "" {
		return fmt.Errorf("database.host is required for the postgres backend")
	}
	if config.Storage.Backend == "redis" && config.Redis.URL == "" {
		return fmt.Errorf("redis.url is required for the redis backend")
	}
	if config.Solana.RPCURL == "" {
		return fmt.Errorf("solana.rpc_url is required")
	}
	if config.Custody.BaseURL == "" {
		return fmt.Errorf("custody.base_url is required")
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
