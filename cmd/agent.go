package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/confbuddy/companion-api/internal/conference"
	"github.com/confbuddy/companion-api/internal/database"
	"github.com/confbuddy/companion-api/internal/remote"
	"github.com/confbuddy/companion-api/internal/store"
	"github.com/confbuddy/companion-api/internal/syncer"
	"github.com/confbuddy/companion-api/pkg/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var agentToken string

// agentCmd represents the agent command
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the device-side sync agent",
	Long: `Run the device-side half of the companion system.

The agent opens (or creates) the local database, registers the
installation's anonymous identity with the backend, starts the
background sync coordinator and keeps the schedule and podcast
catalog reconciled until interrupted.

Example:
  companion-api agent
  companion-api agent --token my-installation-id`,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.Flags().StringVar(&agentToken, "token", "", "installation identity (overrides config)")
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	token := agentToken
	if token == "" {
		token = cfg.Remote.Token
	}
	if token == "" {
		token = uuid.NewString()
		fmt.Printf("No installation identity configured, generated %s\n", token)
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	defer st.Close()

	client := remote.NewClient(remote.Config{
		BaseURL:     cfg.Remote.BaseURL,
		Token:       token,
		Timeout:     cfg.Remote.Timeout,
		MaxAttempts: cfg.Remote.RetryAttempts,
		RetryDelay:  cfg.Remote.RetryDelay,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Identity failure at startup is not fatal: everything keeps working
	// offline and the sweep retries.
	if signed, err := client.Sign(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not register identity: %v\n", err)
	} else if signed {
		fmt.Println("Installation identity registered")
	}

	coordinator := syncer.New(st, client,
		syncer.WithInterval(cfg.Sync.Interval),
		syncer.WithQueueSize(cfg.Sync.QueueSize),
		syncer.WithOnUnauthorized(func() {
			fmt.Fprintln(os.Stderr, "Identity no longer accepted; re-consent required")
		}),
	)

	clock := conference.NewClock(client, cfg.Sync.ClockInterval)
	service := conference.NewService(st, clock)
	service.Start(ctx)
	defer service.Close()

	if err := coordinator.Bootstrap(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: bootstrap incomplete, will catch up in background: %v\n", err)
	}
	if err := coordinator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sync coordinator: %w", err)
	}
	defer coordinator.Close()

	fmt.Printf("Agent syncing against %s every %s\n", cfg.Remote.BaseURL, cfg.Sync.Interval)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	fmt.Println("\nStopping agent...")
	return nil
}
