// Package config loads terminal settings from the environment, with an
// optional .env file for development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL string
	Port       int

	TokenFile string
	DraftFile string
	PDFDir    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RefreshInterval    time.Duration
	TickInterval       time.Duration
	DraftRetentionDays int

	Debug bool
}

// Load reads the environment into a Config. A missing .env file is fine;
// values already exported win over the file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIBaseURL:         os.Getenv("API_BASE_URL"),
		Port:               getEnvInt("PORT", 8090),
		TokenFile:          getEnv("TOKEN_FILE", "terminal-token"),
		DraftFile:          getEnv("DRAFT_FILE", "cashier_invoice_state.json"),
		PDFDir:             getEnv("PDF_DIR", "."),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RefreshInterval:    getEnvDuration("REFRESH_INTERVAL", 5*time.Second),
		TickInterval:       getEnvDuration("TICK_INTERVAL", time.Second),
		DraftRetentionDays: getEnvInt("DRAFT_RETENTION_DAYS", 7),
		Debug:              getEnvBool("DEBUG", false),
	}
}

func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL must be set")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.RefreshInterval <= 0 || c.TickInterval <= 0 {
		return errors.New("refresh and tick intervals must be positive")
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
