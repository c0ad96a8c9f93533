/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
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

// Config holds all the configuration variables for the savings-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                string `mapstructure:"SERVER_PORT"`
	RedisURL                  string `mapstructure:"REDIS_URL"`
	RedisKeyPrefix            string `mapstructure:"REDIS_KEY_PREFIX"`
	RedisRateLimitPrefix      string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RecordTTLHours            int    `mapstructure:"RECORD_TTL_HOURS"`
	RabbitMQURL               string `mapstructure:"RABBITMQ_URL"`
	JWTSecret                 string `mapstructure:"JWT_SECRET"`
	JWTAudience               string `mapstructure:"JWT_AUDIENCE"`
	JWTIssuer                 string `mapstructure:"JWT_ISSUER"`
	AdminUserID               string `mapstructure:"ADMIN_USER_ID"`
	FeeRecipientID            string `mapstructure:"FEE_RECIPIENT_ID"`
	ProtocolFeeBps            int    `mapstructure:"PROTOCOL_FEE_BPS"`
	EarlyBreakFeeBps          int    `mapstructure:"EARLY_BREAK_FEE_BPS"`
	AutoSaveSweepSchedule     string `mapstructure:"AUTOSAVE_SWEEP_SCHEDULE"`
	WriteRateLimitPerMinute   int    `mapstructure:"WRITE_RATE_LIMIT_PER_MINUTE"`
	ExecuteRateLimitPerMinute int    `mapstructure:"EXECUTE_RATE_LIMIT_PER_MINUTE"`
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
	viper.SetDefault("REDIS_KEY_PREFIX", "nestvault:savings")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "nestvault:rate_limit")
	viper.SetDefault("RECORD_TTL_HOURS", 24*30)
	viper.SetDefault("PROTOCOL_FEE_BPS", 50)
	viper.SetDefault("EARLY_BREAK_FEE_BPS", 200)
	viper.SetDefault("AUTOSAVE_SWEEP_SCHEDULE", "*/5 * * * *")
	viper.SetDefault("WRITE_RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("EXECUTE_RATE_LIMIT_PER_MINUTE", 10)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "SAVINGS_REDIS_URL")
	_ = viper.BindEnv("REDIS_KEY_PREFIX")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RECORD_TTL_HOURS")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET", "JWT_SECRET", "SAVINGS_SERVICE_JWT_SECRET")
	_ = viper.BindEnv("JWT_AUDIENCE")
	_ = viper.BindEnv("JWT_ISSUER")
	_ = viper.BindEnv("ADMIN_USER_ID")
	_ = viper.BindEnv("FEE_RECIPIENT_ID")
	_ = viper.BindEnv("PROTOCOL_FEE_BPS")
	_ = viper.BindEnv("EARLY_BREAK_FEE_BPS")
	_ = viper.BindEnv("AUTOSAVE_SWEEP_SCHEDULE")
	_ = viper.BindEnv("WRITE_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("EXECUTE_RATE_LIMIT_PER_MINUTE")

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
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.JWTAudience = strings.TrimSpace(config.JWTAudience)
	config.JWTIssuer = strings.TrimSpace(config.JWTIssuer)
	config.RedisKeyPrefix = strings.TrimSpace(config.RedisKeyPrefix)
	if config.RedisKeyPrefix == "" {
		config.RedisKeyPrefix = "nestvault:savings"
	}
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "nestvault:rate_limit"
	}

	if config.RecordTTLHours < 0 {
		log.Printf("level=warn component=config msg=\"negative record TTL configured; disabling expiry\" ttl_hours=%d", config.RecordTTLHours)
		config.RecordTTLHours = 0
	}

	if config.ProtocolFeeBps < 0 {
		log.Printf("level=warn component=config msg=\"negative protocol fee configured; coercing to zero\" fee_bps=%d", config.ProtocolFeeBps)
		config.ProtocolFeeBps = 0
	}
	if config.ProtocolFeeBps > 10000 {
		log.Printf("level=warn component=config msg=\"protocol fee too high; capping at 10000\" fee_bps=%d", config.ProtocolFeeBps)
		config.ProtocolFeeBps = 10000
	}
	if config.EarlyBreakFeeBps < 0 {
		log.Printf("level=warn component=config msg=\"negative early-break fee configured; coercing to zero\" fee_bps=%d", config.EarlyBreakFeeBps)
		config.EarlyBreakFeeBps = 0
	}
	if config.EarlyBreakFeeBps > 10000 {
		log.Printf("level=warn component=config msg=\"early-break fee too high; capping at 10000\" fee_bps=%d", config.EarlyBreakFeeBps)
		config.EarlyBreakFeeBps = 10000
	}

	if strings.TrimSpace(config.AutoSaveSweepSchedule) == "" {
		config.AutoSaveSweepSchedule = "*/5 * * * *"
	}
	if config.WriteRateLimitPerMinute <= 0 {
		config.WriteRateLimitPerMinute = 60
	}
	if config.ExecuteRateLimitPerMinute <= 0 {
		config.ExecuteRateLimitPerMinute = 10
	}

	return
}
