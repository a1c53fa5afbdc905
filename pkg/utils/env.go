package utils

import (
	"os"
	"time"
)

// Getenv retrieves the value of the environment variable named by the key.
// If the variable is not present or its value is empty, Getenv returns the fallback string.
func Getenv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}

// GetenvDuration parses the variable as a time.Duration, returning fallback when unset or invalid.
func GetenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		LogWarn("Invalid duration in environment, using default", map[string]interface{}{"key": key, "value": value})
		return fallback
	}
	return d
}
