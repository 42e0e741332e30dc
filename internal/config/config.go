package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	DBUrl             string
	JWTSecret         string
	AppEnv            string
	LogLevel          string
	EnableMetrics     bool
	SendRatePerSecond float64
	SendBurst         int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		DBUrl:             getEnv("DB_URL", ""),
		JWTSecret:         jwtSecret,
		AppEnv:            normalizeEnv(getEnv("APP_ENV", "production")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		EnableMetrics:     getEnvBool("ENABLE_METRICS", true),
		SendRatePerSecond: getEnvFloat("SEND_RATE_PER_SECOND", 2),
		SendBurst:         getEnvInt("SEND_BURST", 10),
	}, nil
}

// ClientConfig configures the messenger client.
type ClientConfig struct {
	APIURL            string
	Token             string
	HighlightDuration time.Duration
	AppEnv            string
	LogLevel          string
}

func LoadClientConfig() *ClientConfig {
	_ = godotenv.Load()

	return &ClientConfig{
		APIURL:            strings.TrimRight(getEnv("VOLUNTEERHUB_API_URL", "http://localhost:8080"), "/"),
		Token:             getEnv("VOLUNTEERHUB_TOKEN", ""),
		HighlightDuration: getEnvDuration("HIGHLIGHT_DURATION", 2*time.Second),
		AppEnv:            normalizeEnv(getEnv("APP_ENV", "production")),
		LogLevel:          getEnv("LOG_LEVEL", "warn"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func getEnvFloat(key string, fallback float64) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}
