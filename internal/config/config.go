// Package config provides configuration management for the drop bot.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/97woo/tgbot/internal/types"
)

// Config holds all application configuration
type Config struct {
	Telegram TelegramConfig
	Chain    ChainConfig
	Drop     DropConfig
	Dispatch DispatchConfig
	Storage  StorageConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// TelegramConfig holds Telegram Bot API configuration
type TelegramConfig struct {
	BotToken    string
	AdminUserID string
	PollTimeout time.Duration
}

// ChainConfig holds Rootstock chain configuration
type ChainConfig struct {
	RPCURL      string
	ChainID     int64
	PrivateKey  string
	ExplorerURL string
	RPCTimeout  time.Duration
}

// DropConfig holds drop eligibility configuration
type DropConfig struct {
	Probability    float64  // Per-message drop probability in [0,1)
	AmountWei      *big.Int // Nominal fixed drop amount
	DailyCapWei    *big.Int // Per-period spend cap
	DustWei        *big.Int // Minimal amount worth sending
	Cooldown       time.Duration
	MinMessageLen  int
	MinPopulation  int // Venue member count must exceed this
	RolloverHour   int // Local hour at which the spend period rolls over
	BlacklistedIDs []string
}

// DispatchConfig holds transaction dispatch configuration
type DispatchConfig struct {
	InnerAttempts     int           // Submission attempts per send call
	InnerDelay        time.Duration // Pause between escalating attempts
	OuterAttempts     int           // Full send re-invocations
	OuterDelay        time.Duration
	OverMinPercent    int64    // Base price markup over the network minimum
	PriceIncrementWei *big.Int // Escalation step per attempt
	GasFloor          uint64   // Network recommended gas for a value transfer
	GasMarginPercent  uint64
	GasCeiling        uint64
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	Backend  string // "file" or "redis"
	FilePath string
	Redis    RedisConfig
	Postgres PostgresConfig
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// PostgresConfig holds optional Postgres configuration for the drop
// history reporting sink. Disabled when Host is empty.
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ServerConfig holds the operational HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	amount, err := getEnvAsWei("DROP_AMOUNT_RBTC", "0.00000625")
	if err != nil {
		return nil, err
	}
	dailyCap, err := getEnvAsWei("MAX_DAILY_AMOUNT_RBTC", "0.00003125")
	if err != nil {
		return nil, err
	}
	dust, err := getEnvAsWei("DUST_THRESHOLD_RBTC", "0.00000001")
	if err != nil {
		return nil, err
	}

	config := &Config{
		Telegram: TelegramConfig{
			BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
			AdminUserID: getEnv("ADMIN_USER_ID", ""),
			PollTimeout: getEnvAsDuration("TELEGRAM_POLL_TIMEOUT", 10*time.Second),
		},
		Chain: ChainConfig{
			RPCURL:      getEnv("RPC_URL", "https://public-node.testnet.rsk.co"),
			ChainID:     int64(getEnvAsInt("CHAIN_ID", 31)),
			PrivateKey:  getEnv("PRIVATE_KEY", ""),
			ExplorerURL: getEnv("EXPLORER_URL", "https://explorer.rsk.co"),
			RPCTimeout:  getEnvAsDuration("RPC_TIMEOUT", 10*time.Second),
		},
		Drop: DropConfig{
			Probability:    getEnvAsFloat("DROP_RATE", 0.05),
			AmountWei:      amount,
			DailyCapWei:    dailyCap,
			DustWei:        dust,
			Cooldown:       getEnvAsDuration("COOLDOWN", 60*time.Second),
			MinMessageLen:  getEnvAsInt("MIN_MESSAGE_LENGTH", 5),
			MinPopulation:  getEnvAsInt("MIN_VENUE_POPULATION", 3),
			RolloverHour:   getEnvAsInt("PERIOD_ROLLOVER_HOUR", 9),
			BlacklistedIDs: getEnvAsList("BLACKLISTED_USER_IDS"),
		},
		Dispatch: DispatchConfig{
			InnerAttempts:     getEnvAsInt("DISPATCH_INNER_ATTEMPTS", 3),
			InnerDelay:        getEnvAsDuration("DISPATCH_INNER_DELAY", 2*time.Second),
			OuterAttempts:     getEnvAsInt("DISPATCH_OUTER_ATTEMPTS", 5),
			OuterDelay:        getEnvAsDuration("DISPATCH_OUTER_DELAY", 3*time.Second),
			OverMinPercent:    int64(getEnvAsInt("GAS_PRICE_OVER_MIN_PERCENT", 10)),
			PriceIncrementWei: big.NewInt(int64(getEnvAsInt("GAS_PRICE_INCREMENT_WEI", 20_000_000))),
			GasFloor:          uint64(getEnvAsInt("GAS_FLOOR", 21_000)),
			GasMarginPercent:  uint64(getEnvAsInt("GAS_MARGIN_PERCENT", 20)),
			GasCeiling:        uint64(getEnvAsInt("GAS_CEILING", 50_000)),
		},
		Storage: StorageConfig{
			Backend:  getEnv("STORAGE_BACKEND", "file"),
			FilePath: getEnv("STORAGE_FILE", "dropbot.json"),
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", ""),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "dropbot"),
				User:           getEnv("POSTGRES_USER", "dropbot"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 10),
			},
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.Drop.Probability < 0 || c.Drop.Probability >= 1 {
		return fmt.Errorf("DROP_RATE must be in [0,1), got %v", c.Drop.Probability)
	}
	if c.Drop.RolloverHour < 0 || c.Drop.RolloverHour > 23 {
		return fmt.Errorf("PERIOD_ROLLOVER_HOUR must be in [0,23], got %d", c.Drop.RolloverHour)
	}
	if c.Storage.Backend != "file" && c.Storage.Backend != "redis" {
		return fmt.Errorf("STORAGE_BACKEND must be \"file\" or \"redis\", got %q", c.Storage.Backend)
	}
	if c.Dispatch.InnerAttempts < 1 || c.Dispatch.OuterAttempts < 1 {
		return fmt.Errorf("dispatch attempt budgets must be at least 1")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList gets a comma-separated environment variable as a string slice
func getEnvAsList(key string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAsWei parses a decimal RBTC environment variable into wei
func getEnvAsWei(key, defaultValue string) (*big.Int, error) {
	wei, err := types.ParseRBTC(getEnv(key, defaultValue))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return wei, nil
}
