package config

import (
	"os"
	"strings"
)

// Deployment environments
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// environmentVar is read before viper runs, to decide whether a local .env
// file may be loaded
const environmentVar = envPrefix + "_SERVER_ENVIRONMENT"

// GetEnv returns os.Getenv(key), or fallback when it is unset or empty
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// GetEnvironment is the lower-cased deployment environment
func GetEnvironment() string {
	return strings.ToLower(GetEnv(environmentVar, EnvDevelopment))
}

// IsProductionLike reports staging or production, where dev conveniences
// such as .env files and localhost defaults are refused
func IsProductionLike() bool {
	switch GetEnvironment() {
	case EnvStaging, EnvProduction:
		return true
	}
	return false
}
