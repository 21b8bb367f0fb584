package server

import (
	"fmt"
	"time"

	"github.com/kbukum/gohost/validation"
)

// Config holds HTTP server configuration.
type Config struct {
	// Name is the component name; defaults to "http-server".
	Name            string        `yaml:"name" mapstructure:"name"`
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port" validate:"min=0,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"min=0"`
	// MaxConcurrentStreams bounds HTTP/2 streams per connection.
	MaxConcurrentStreams uint32 `yaml:"max_concurrent_streams" mapstructure:"max_concurrent_streams"`
}

// ApplyDefaults sets sensible default values for unset fields. Port 0 is
// kept and binds an ephemeral port.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "http-server"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.MaxConcurrentStreams == 0 {
		c.MaxConcurrentStreams = 250
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Addr returns the configured listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
