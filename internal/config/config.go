package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Market    Market    `mapstructure:"market"`
	Engine    Engine    `mapstructure:"engine"`
	Rebalance Rebalance `mapstructure:"rebalance"`
	Logger    Logger    `mapstructure:"logger"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
}

// Market holds the configuration for the market data gateway.
type Market struct {
	Venues         []string `mapstructure:"venues"` // ordered fallback chain
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	CacheTTL       int      `mapstructure:"cache_ttl"` // seconds
	RateLimit      float64  `mapstructure:"rate_limit"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
}

// Engine holds the configuration for the bot execution engine.
type Engine struct {
	TickInterval        int      `mapstructure:"tick_interval"` // seconds
	CycleTimeoutSeconds int      `mapstructure:"cycle_timeout_seconds"`
	MaxConcurrentBots   int      `mapstructure:"max_concurrent_bots"`
	StartingBalance     float64  `mapstructure:"starting_balance"`
	Watchlist           []string `mapstructure:"watchlist"`
}

// Rebalance holds the rebalancer policy knobs.
type Rebalance struct {
	DriftThreshold float64 `mapstructure:"drift_threshold"` // percentage points
	// PrimaryPairs names the pair to buy for an under-allocated category
	// when the bot holds nothing in it, keyed by category.
	PrimaryPairs map[string]string `mapstructure:"primary_pairs"`
}

// Server holds the configuration for the operational HTTP server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("market.venues", []string{"binance", "kraken"})
	viper.SetDefault("market.timeout_seconds", 5)
	viper.SetDefault("market.cache_ttl", 60)
	viper.SetDefault("market.rate_limit", 10) // requests per second
	viper.SetDefault("market.rate_limit_burst", 5)

	viper.SetDefault("engine.tick_interval", 300)
	viper.SetDefault("engine.cycle_timeout_seconds", 120)
	viper.SetDefault("engine.max_concurrent_bots", 4)
	viper.SetDefault("engine.starting_balance", 10000)
	viper.SetDefault("engine.watchlist", []string{
		"BTC/USDT", "ETH/USDT", "SOL/USDT", "AVAX/USDT", "LINK/USDT", "ARB/USDT",
	})

	viper.SetDefault("rebalance.drift_threshold", 5)
	viper.SetDefault("rebalance.primary_pairs", map[string]string{
		"bitcoin":      "BTC/USDT",
		"largeCapAlts": "ETH/USDT",
		"midCapAlts":   "LINK/USDT",
		"smallCapAlts": "ARB/USDT",
	})

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.dsn", "paperbot.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		// Run on defaults plus environment when no config file is present.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
