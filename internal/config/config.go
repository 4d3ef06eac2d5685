/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables,
 * providing a centralized and straightforward way to manage application
 * settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the custody-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                 string `mapstructure:"SERVER_PORT"`
	DatabaseURL                string `mapstructure:"DATABASE_URL"`
	RedisURL                   string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix       string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                string `mapstructure:"RABBITMQ_URL"`
	ControlEventQueue          string `mapstructure:"CONTROL_EVENT_QUEUE"`
	SettlementAPIBaseURL       string `mapstructure:"SETTLEMENT_API_BASE_URL"`
	SettlementAPIKey           string `mapstructure:"SETTLEMENT_API_KEY"`
	JWKSURL                    string `mapstructure:"JWKS_URL"`
	InternalAPIKey             string `mapstructure:"INTERNAL_API_KEY"`
	BootstrapAdmin             string `mapstructure:"BOOTSTRAP_ADMIN"`
	TokenFundingEnabled        bool   `mapstructure:"TOKEN_FUNDING_ENABLED"`
	WithdrawBatchMax           int    `mapstructure:"WITHDRAW_BATCH_MAX"`
	CreditBatchMax             int    `mapstructure:"CREDIT_BATCH_MAX"`
	WithdrawRateLimitPerMinute int    `mapstructure:"WITHDRAW_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("CONTROL_EVENT_QUEUE", "custody_service.control")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "custody:rate_limit")
	viper.SetDefault("TOKEN_FUNDING_ENABLED", false)
	viper.SetDefault("WITHDRAW_BATCH_MAX", 50)
	viper.SetDefault("CREDIT_BATCH_MAX", 100)
	viper.SetDefault("WITHDRAW_RATE_LIMIT_PER_MINUTE", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "CUSTODY_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("CONTROL_EVENT_QUEUE")
	_ = viper.BindEnv("SETTLEMENT_API_BASE_URL")
	_ = viper.BindEnv("SETTLEMENT_API_KEY")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "CUSTODY_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("BOOTSTRAP_ADMIN")
	_ = viper.BindEnv("TOKEN_FUNDING_ENABLED")
	_ = viper.BindEnv("WITHDRAW_BATCH_MAX")
	_ = viper.BindEnv("CREDIT_BATCH_MAX")
	_ = viper.BindEnv("WITHDRAW_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("CUSTODY_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.BootstrapAdmin = strings.TrimSpace(config.BootstrapAdmin)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "custody:rate_limit"
	}

	if config.WithdrawBatchMax <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive withdraw batch max configured; using default\" value=%d", config.WithdrawBatchMax)
		config.WithdrawBatchMax = 50
	}
	if config.CreditBatchMax <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive credit batch max configured; using default\" value=%d", config.CreditBatchMax)
		config.CreditBatchMax = 100
	}
	if config.WithdrawRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative withdraw rate limit configured; disabling limiter\" value=%d", config.WithdrawRateLimitPerMinute)
		config.WithdrawRateLimitPerMinute = 0
	}

	return
}
