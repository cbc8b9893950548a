package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/config"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/logging"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/ui"
)

var (
	configPath string
	useMemory  bool
	jsonOutput bool
	noColor    bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "ace <command>",
	Short:         "Content pipeline backend: agents, event log, status and metrics",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath, func(c *config.Config) {
			if useMemory {
				c.Memory = true
			}
		})
		if err != nil {
			return err
		}
		cfg = c

		l, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(logger)

		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file (default $ACE_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false, "use the in-process store instead of PostgreSQL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "agents", Title: "Agents:"},
		&cobra.Group{ID: "events", Title: "Event Log:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false

	// Agents
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pipelineCmd)

	// Event Log
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(watchCmd)

	// Views
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(dashboardCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(archiveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
