package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kbukum/gohost/config"
	"github.com/kbukum/gohost/hosting"

	// Registers the sample Startup.
	_ "github.com/kbukum/gohost/cmd/gohost/startup"
)

type runFlags struct {
	configFile  string
	environment string
	contentRoot string
	startup     string
	summary     bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Configure and run the application host",
		Long: `Load host configuration, configure the registered Startup and run until
SIGINT, SIGTERM or an application stop request.

Configuration is read from config.yml (or --config) and GOHOST_ environment
variables; flags override both.

Examples:
  # Run with defaults
  gohost run

  # Run the Development environment from a content root
  gohost run --environment Development --content-root ./app

  # Override config with environment variables
  GOHOST_LOGGING_LEVEL=debug gohost run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHost(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to config file (default: search config.yml)")
	cmd.Flags().StringVarP(&f.environment, "environment", "e", "", "Environment name (default: $GOHOST_ENVIRONMENT or Production)")
	cmd.Flags().StringVar(&f.contentRoot, "content-root", "", "Content root directory (default: working directory)")
	cmd.Flags().StringVar(&f.startup, "startup", "", "Name of the registered Startup to run")
	cmd.Flags().BoolVar(&f.summary, "summary", true, "Print the startup summary")
	return cmd
}

// loadHostConfig reads config files and environment variables, then applies
// flag overrides.
func loadHostConfig(f runFlags) (config.HostConfig, error) {
	var cfg config.HostConfig
	var opts []config.LoaderOption
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if err := config.LoadConfig("gohost", &cfg, opts...); err != nil {
		return cfg, err
	}

	if cfg.Name == "" {
		cfg.Name = "gohost"
	}
	if f.environment != "" {
		cfg.Environment = f.environment
	}
	if f.contentRoot != "" {
		cfg.ContentRoot = f.contentRoot
	}
	return cfg, nil
}

func runHost(cmd *cobra.Command, f runFlags) error {
	cfg, err := loadHostConfig(f)
	if err != nil {
		return err
	}

	opts := []hosting.Option{hosting.WithMetricsRegisterer(prometheus.DefaultRegisterer)}
	if f.startup != "" {
		opts = append(opts, hosting.WithStartupName(f.startup))
	}
	if f.summary {
		opts = append(opts, hosting.WithSummaryOutput(cmd.OutOrStdout()))
	}

	h, err := hosting.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := h.Configure(cmd.Context()); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	return h.Run(cmd.Context())
}
