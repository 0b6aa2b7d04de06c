package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads a .env file if present. Missing files are fine; env vars can
// be set by other means.
func Load() {
	_ = godotenv.Load()
	log.Println("[Config] Environment variables loaded (if .env present)")
}

func String(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func Int(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[Config] invalid %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

// Brokers splits a comma-separated broker list.
func Brokers(key, defaultValue string) []string {
	return strings.Split(String(key, defaultValue), ",")
}
