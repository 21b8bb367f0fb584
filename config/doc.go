// Package config provides configuration loading and validation for gohost
// processes.
//
// It uses Viper to load configuration from YAML files and environment
// variables, and godotenv to pick up .env files. Two entry points exist:
//
//   - LoadConfig fills a HostConfig (or any struct embedding one) for the
//     process entry point.
//   - LoadSettings layers appsettings.yml, appsettings.<environment>.yml and
//     environment variables from a content root, for use inside a Startup.
//
// Environment variables override file values using the GOHOST_ prefix with
// underscore-separated paths (e.g., GOHOST_LOGGING_LEVEL).
package config
