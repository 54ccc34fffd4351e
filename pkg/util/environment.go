package util

import (
	"os"
	"strings"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		key, value, found := strings.Cut(variable, "=")
		if !found {
			continue
		}

		environmentVariables[key] = value
	}

	return environmentVariables
}

// GetEnvironmentVariable returns the value of key, or fallback when it is unset or empty.
func GetEnvironmentVariable(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}
