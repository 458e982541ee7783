package cmd

import (
	"fmt"
	"os"

	"github.com/confbuddy/companion-api/pkg/config"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "companion-api",
	Short: "Conference companion sync server and agent",
	Long: `Conference Companion API - offline-first sync for a conference companion app

The same binary runs both sides of the system:

  serve  - the backend HTTP API holding the canonical schedule, votes,
           favorites, feedback and the curated podcast catalog
  agent  - the device-side sync agent: local store, background sync
           coordinator and schedule/catalog aggregation

Local writes land in the store immediately and reconcile with the
backend in the background; the agent works fully offline and catches
up when connectivity returns.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Set up configuration loading with lazy initialization
	cobra.OnInitialize(loadConfig)
}

// loadConfig loads the configuration when a command needs it
// This is called lazily only when a command that needs config runs
func loadConfig() {
	// Skip config loading for commands that don't need it
	cmd, _, _ := rootCmd.Find(os.Args[1:])
	if cmd != nil && (cmd.Name() == "version" || cmd.Name() == "help") {
		return
	}

	// Initialize the configuration
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}
