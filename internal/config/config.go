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

// Config holds all the configuration variables for the enrollment-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	EnrollmentEventExchange  string `mapstructure:"ENROLLMENT_EVENT_EXCHANGE"`
	PaymentAPIBaseURL        string `mapstructure:"PAYMENT_API_BASE_URL"`
	PaymentAPIKey            string `mapstructure:"PAYMENT_API_KEY"`
	PaymentSuccessURL        string `mapstructure:"PAYMENT_SUCCESS_URL"`
	PaymentCancelURL         string `mapstructure:"PAYMENT_CANCEL_URL"`
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	EnrollRateLimitPerMinute int    `mapstructure:"ENROLL_RATE_LIMIT_PER_MINUTE"`
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
	viper.SetDefault("ENROLLMENT_EVENT_EXCHANGE", "learnhub.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "learnhub:rate_limit")
	viper.SetDefault("ENROLL_RATE_LIMIT_PER_MINUTE", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("ENROLLMENT_EVENT_EXCHANGE")
	_ = viper.BindEnv("PAYMENT_API_BASE_URL")
	_ = viper.BindEnv("PAYMENT_API_KEY")
	_ = viper.BindEnv("PAYMENT_SUCCESS_URL")
	_ = viper.BindEnv("PAYMENT_CANCEL_URL")
	_ = viper.BindEnv("JWT_SECRET", "JWT_SECRET", "ENROLLMENT_SERVICE_JWT_SECRET")
	_ = viper.BindEnv("ENROLL_RATE_LIMIT_PER_MINUTE")

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
	if strings.TrimSpace(config.JWTSecret) == "" {
		config.JWTSecret = strings.TrimSpace(os.Getenv("ENROLLMENT_SERVICE_JWT_SECRET"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "learnhub:rate_limit"
	}
	config.EnrollmentEventExchange = strings.TrimSpace(config.EnrollmentEventExchange)
	if config.EnrollmentEventExchange == "" {
		config.EnrollmentEventExchange = "learnhub.events"
	}

	if config.EnrollRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative enroll rate limit configured; disabling limiter\" limit=%d", config.EnrollRateLimitPerMinute)
		config.EnrollRateLimitPerMinute = 0
	}

	return
}
