package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ong-collab/collabctl/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long: `Display the current collabctl configuration.

Examples:
  collabctl config                # Show all config
  collabctl config --path         # Show config file path
  collabctl config --json         # Output as JSON`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("path", false, "show config file path")
	configCmd.Flags().Bool("json", false, "output as JSON")
}

func runConfig(cmd *cobra.Command, args []string) error {
	printer := newPrinter(cmd)

	showPath, _ := cmd.Flags().GetBool("path")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if showPath {
		if cfg.Source == "" {
			printer.Info("No config file found (using defaults)")
		} else {
			printer.Info("Config file: %s", cfg.Source)
		}
		return nil
	}

	if jsonOutput {
		return printJSON(cmd, cfg)
	}

	printer.Header("Current Configuration")

	table := output.NewPrinterTable(printer, []string{"KEY", "VALUE"})
	table.AddRow([]string{"api.base_url", cfg.API.BaseURL})
	table.AddRow([]string{"api.timeout", cfg.API.Timeout.String()})
	table.AddRow([]string{"api.rate_limit", fmt.Sprintf("%g/s burst %d", cfg.API.RateLimit, cfg.API.Burst)})
	table.AddRow([]string{"session.store", cfg.Session.Store})
	switch cfg.Session.Store {
	case "redis":
		table.AddRow([]string{"session.redis_prefix", cfg.Session.RedisPrefix})
	case "file":
		table.AddRow([]string{"session.dir", cfg.Session.Dir})
	}
	table.AddRow([]string{"session.check_interval", cfg.Session.CheckInterval.String()})
	table.AddRow([]string{"session.expiry_buffer", cfg.Session.ExpiryBuffer.String()})
	table.AddRow([]string{"server.addr", cfg.Server.Addr})
	table.AddRow([]string{"cache.ttl", cfg.Cache.TTL.String()})
	table.AddRow([]string{"cache.size", fmt.Sprint(cfg.Cache.Size)})
	table.AddRow([]string{"logging.level", cfg.Logging.Level})
	table.AddRow([]string{"logging.format", cfg.Logging.Format})
	table.AddRow([]string{"output.colors", fmt.Sprintf("%v", cfg.Output.Colors)})
	table.AddRow([]string{"telemetry.enabled", fmt.Sprintf("%v", cfg.Telemetry.Enabled)})
	if cfg.Telemetry.Enabled {
		table.AddRow([]string{"telemetry.endpoint", cfg.Telemetry.Endpoint})
	}
	return table.Render()
}
