// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	Env             string
	DBPath          string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, after loading a .env file
// if one is present.
func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		Port:            getenv("PORT", "8080"),
		Env:             getenv("ENV", "dev"),
		DBPath:          getenv("DB_PATH", "payments.db"),
		ShutdownTimeout: time.Duration(getenvInt("SHUTDOWN_TIMEOUT", 10)) * time.Second,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
