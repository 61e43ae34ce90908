// Package config loads server settings from the environment.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all settings for the server. Values come from environment
// variables, optionally seeded from a .env file.
type Config struct {
	Port             string
	DatabasePath     string
	LogLevel         string
	CacheTTL         time.Duration
	AllowedOrigins   []string
	SweepConcurrency int
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	return Config{
		Port:             "8080",
		DatabasePath:     "./waterfall.db",
		LogLevel:         "info",
		CacheTTL:         10 * time.Minute,
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		SweepConcurrency: 4,
	}
}

// Load reads .env files (if present) and then the process environment.
// Files never override variables that are already set.
func Load(envFiles ...string) Config {
	if err := godotenv.Load(envFiles...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no .env file found, using process environment")
		} else {
			slog.Warn("failed to load .env file, using process environment", "error", err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() Config {
	d := Defaults()
	return Config{
		Port:             getEnv("PORT", d.Port),
		DatabasePath:     getEnv("DATABASE_PATH", d.DatabasePath),
		LogLevel:         getEnv("LOG_LEVEL", d.LogLevel),
		CacheTTL:         getEnvAsDuration("CACHE_TTL", d.CacheTTL),
		AllowedOrigins:   getEnvAsList("ALLOWED_ORIGINS", d.AllowedOrigins),
		SweepConcurrency: getEnvAsInt("SWEEP_CONCURRENCY", d.SweepConcurrency),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", s, "default", fallback)
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil || v <= 0 {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", s, "default", fallback)
		return fallback
	}
	return v
}

func getEnvAsList(key string, fallback []string) []string {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
