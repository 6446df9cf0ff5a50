// Package config loads server and client configuration from CLI flags,
// environment variables, and an optional YAML file, in that precedence
// order: flags win over the config file, which wins over the environment,
// which wins over hard-coded defaults.
package config

import (
	"os"
	"strconv"
)

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
