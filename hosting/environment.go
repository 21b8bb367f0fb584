package hosting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/gohost/config"
	apperrors "github.com/kbukum/gohost/errors"
)

// Environment describes where and as what the process runs. It is immutable;
// copies are safe to share.
type Environment struct {
	contentRootPath string
	environmentName string
	applicationName string
}

// NewEnvironment builds the environment from host configuration. An empty
// content root resolves to the working directory; a configured one must be an
// existing directory. An empty environment name means Production.
func NewEnvironment(cfg config.HostConfig) (Environment, error) {
	root := cfg.ContentRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Environment{}, apperrors.InvalidConfig(fmt.Errorf("resolve working directory: %w", err))
		}
		root = wd
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return Environment{}, apperrors.InvalidConfig(fmt.Errorf("content root %q: %w", root, err))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Environment{}, apperrors.InvalidConfig(fmt.Errorf("content root %q: %w", abs, err))
	}
	if !info.IsDir() {
		return Environment{}, apperrors.InvalidConfig(fmt.Errorf("content root %q is not a directory", abs))
	}

	name := cfg.Environment
	if name == "" {
		name = config.EnvironmentProduction
	}

	return Environment{
		contentRootPath: abs,
		environmentName: name,
		applicationName: cfg.Name,
	}, nil
}

// ContentRootPath returns the absolute directory application files are read from.
func (e Environment) ContentRootPath() string { return e.contentRootPath }

// EnvironmentName returns the environment name, e.g. "Development".
func (e Environment) EnvironmentName() string { return e.environmentName }

// ApplicationName returns the configured application name.
func (e Environment) ApplicationName() string { return e.applicationName }

// IsEnvironment compares the environment name case-insensitively.
func (e Environment) IsEnvironment(name string) bool {
	return strings.EqualFold(e.environmentName, name)
}

// IsDevelopment reports whether the environment is Development.
func (e Environment) IsDevelopment() bool { return e.IsEnvironment(config.EnvironmentDevelopment) }

// IsStaging reports whether the environment is Staging.
func (e Environment) IsStaging() bool { return e.IsEnvironment(config.EnvironmentStaging) }

// IsProduction reports whether the environment is Production.
func (e Environment) IsProduction() bool { return e.IsEnvironment(config.EnvironmentProduction) }

func (e Environment) String() string {
	return fmt.Sprintf("%s (%s) at %s", e.applicationName, e.environmentName, e.contentRootPath)
}
