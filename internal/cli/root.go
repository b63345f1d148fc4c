// Package cli contains the cafeauth commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"cafe_client/internal/client"
	"cafe_client/internal/config"
	"cafe_client/internal/platform/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	storeDriver string
	verbose     bool

	// loadConfig is replaced in tests.
	loadConfig = config.Load

	core *client.Client
	log  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cafeauth",
	Short: "Sign in to the café app from the terminal",
	Long: `cafeauth drives the café app's authentication core without the mobile UI.

Example usage:
  cafeauth status                          # Show the restored session and where the app would open
  cafeauth login --email ana@cafe.co       # Sign in (password from --password or CAFE_PASSWORD)
  cafeauth register --role manager ...     # Create an account and wait for email verification
  cafeauth cafe                            # Show the signed-in manager's café
  cafeauth watch                           # Revalidate the session on REVALIDATE_SCHEDULE
  cafeauth logout                          # Remove the stored session`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initClient(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeClient()
	},
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	defer closeClient()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "session store driver: memory, sqlite or redis (default from SESSION_STORE_DRIVER)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func initClient(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if storeDriver != "" {
		cfg.SessionStoreDriver = storeDriver
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log, err = logger.New(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	core, err = client.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	core.Start(ctx)
	return nil
}

func closeClient() error {
	if core == nil {
		return nil
	}
	err := core.Close()
	core = nil
	if log != nil {
		_ = log.Sync()
	}
	return err
}

// password returns the flag value or, when empty, CAFE_PASSWORD.
func password(cmd *cobra.Command, flag string) string {
	if p, _ := cmd.Flags().GetString(flag); p != "" {
		return p
	}
	return os.Getenv("CAFE_PASSWORD")
}
