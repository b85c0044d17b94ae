package config

import (
	"os"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentStaging     = "staging"
)

const (
	// EnvironmentDevelopment is the canonical development environment name.
	EnvironmentDevelopment = environmentDevelopment
	// EnvironmentProduction is the canonical production environment name.
	EnvironmentProduction = environmentProduction
	// EnvironmentStaging is the canonical staging environment name.
	EnvironmentStaging = environmentStaging
)

// DefaultConfigPath is used when no -config flag is given.
const DefaultConfigPath = "config/config.yml"

var environmentAliases = map[string]string{
	"prod":  environmentProduction,
	"stag":  environmentStaging,
	"dev":   environmentDevelopment,
	"local": environmentDevelopment,
}

var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

// getAppEnvironment reads the application environment from APP_ENV and
// defaults to development when no value is provided.
func getAppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// resolveEnvSpecificPath swaps the default path for the environment specific
// one. An explicitly chosen path always wins.
func resolveEnvSpecificPath(path, defaultPath string, envPaths map[string]string) string {
	if path == "" {
		path = defaultPath
	}

	if envPath, ok := envPaths[getAppEnvironment()]; ok && path == defaultPath {
		return envPath
	}
	return path
}

// AppEnvironment returns the normalised APP_ENV value.
func AppEnvironment() string {
	return getAppEnvironment()
}

// IsProductionLike reports whether env is production or staging. Those
// environments refuse to run without a notifier or with an inline password.
func IsProductionLike(env string) bool {
	switch env {
	case environmentProduction, environmentStaging:
		return true
	default:
		return false
	}
}
