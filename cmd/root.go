// Package cmd contains all CLI commands for collabctl
package cmd

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ong-collab/collabctl/internal/config"
	"github.com/ong-collab/collabctl/internal/output"
	logutil "github.com/ong-collab/collabctl/internal/utils/logger"
)

var (
	cfgFile   string
	verbose   bool
	quiet     bool
	colorMode string
	apiURL    string
	cfg       *config.Config
	logger    *slog.Logger
	version   = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "collabctl",
	Short: "NGO collaboration platform client",
	Long: `collabctl is the client for the NGO collaboration platform.

It keeps your session (access and refresh tokens) on disk, refreshes it when
it expires and gives you the projects, offers, observations and metrics your
role can see.

Example usage:
  collabctl login --email ana@techo.org      # Start a session
  collabctl whoami                           # Show the current identity
  collabctl projects list --mine             # List your projects
  collabctl serve                            # Run the local web console
  collabctl logout                           # End the session`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

// HandleError prints err to stderr and returns the process exit code.
func HandleError(err error) int {
	if err == nil {
		return output.ExitSuccess
	}
	useColors := cfg != nil && cfg.Output.Colors
	printer := output.NewPrinterWithOptions(output.PrinterOptions{
		ColorMode:    output.ColorAuto,
		ConfigColors: useColors,
		Err:          rootCmd.ErrOrStderr(),
	})
	cliErr := output.FromError(err)
	printer.FormatError(cliErr)
	return cliErr.ExitCode
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .collabctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print errors and requested data")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "color output: auto, always or never")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "backend base URL (overrides api.base_url)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})
}

// initConfig reads in config file and ENV variables if set. A config that
// is already set (tests) is kept.
func initConfig() error {
	if err := config.LoadDotEnv(""); err != nil {
		return configError(err)
	}

	if cfg == nil {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return configError(err)
		}
		cfg = loaded
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if _, err := output.ParseColorMode(colorMode); err != nil {
		return usageError(err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger = logutil.New(logutil.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		Writer:      os.Stderr,
		OTel:        cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
	})

	logger.Debug("configuration loaded",
		"source", cfg.Source,
		"api", cfg.API.BaseURL,
		"store", cfg.Session.Store,
	)

	return nil
}

func newPrinter(cmd *cobra.Command) *output.Printer {
	mode, _ := output.ParseColorMode(colorMode)
	return output.NewPrinterWithOptions(output.PrinterOptions{
		ColorMode:    mode,
		ConfigColors: cfg.Output.Colors,
		Quiet:        quiet,
		Out:          cmd.OutOrStdout(),
		Err:          cmd.ErrOrStderr(),
	})
}

func configError(err error) error {
	return &output.CLIError{
		Summary:    "invalid configuration",
		Detail:     err.Error(),
		Suggestion: "Check .collabctl.yaml and COLLABCTL_* environment variables",
		ExitCode:   output.ExitConfigError,
		Err:        err,
	}
}

func usageError(err error) error {
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return err
	}
	return &output.CLIError{
		Summary:    err.Error(),
		Suggestion: "See --help for usage",
		ExitCode:   output.ExitUsageError,
		Err:        err,
	}
}

// usageArgs wraps a cobra argument validator so its errors exit with the usage code.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}
