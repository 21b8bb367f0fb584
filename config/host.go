package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kbukum/gohost/logger"
	"github.com/kbukum/gohost/validation"
)

// Well-known environment names.
const (
	EnvironmentDevelopment = "Development"
	EnvironmentStaging     = "Staging"
	EnvironmentProduction  = "Production"
)

// EnvPrefix is the prefix of every environment variable gohost reads.
const EnvPrefix = "GOHOST"

// EnvironmentVariable selects the environment name when the config leaves it empty.
const EnvironmentVariable = EnvPrefix + "_ENVIRONMENT"

// DefaultShutdownTimeout bounds how long disposers are given during teardown.
const DefaultShutdownTimeout = 15 * time.Second

// HostConfig contains the settings the host itself needs.
// Processes extend it by embedding it in their own config structs.
//
// Example:
//
//	type MyConfig struct {
//	    config.HostConfig `yaml:",inline" mapstructure:",squash"`
//	    Server server.Config `yaml:"server" mapstructure:"server"`
//	}
type HostConfig struct {
	Name            string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment     string        `yaml:"environment" mapstructure:"environment" validate:"required,envname"`
	ContentRoot     string        `yaml:"content_root" mapstructure:"content_root"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"min=0"`
	Logging         logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetHostConfig returns the base HostConfig.
// When embedded in a larger config struct, this method is promoted.
func (c *HostConfig) GetHostConfig() *HostConfig {
	return c
}

// ApplyDefaults applies default values to the host configuration.
// An empty environment is taken from GOHOST_ENVIRONMENT, then defaults to
// Production. An empty content root stays empty and is resolved to the working
// directory by the host.
func (c *HostConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = os.Getenv(EnvironmentVariable)
	}
	if c.Environment == "" {
		c.Environment = EnvironmentProduction
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the host configuration fields.
func (c *HostConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
