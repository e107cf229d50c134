package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lexora.io/legal-assistant/internal/app"
	"lexora.io/legal-assistant/internal/config"
	"lexora.io/legal-assistant/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Administer the legal assistant's document index and accounts",
	Long: `ragctl runs the assistant's administrative operations directly against the
configured stores, using the same environment variables as the server.

Examples:
  ragctl docs ingest ./leave-policy.pdf
  ragctl docs list
  ragctl docs reconcile leave-policy.pdf
  ragctl retrieve "notice period for resignation"
  ragctl user create --name "Ada Counsel" --email ada@example.com --role professional`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.LoadConfig(); err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := "warn"
		if verbose {
			level = "debug"
		}
		logging.Setup(level, "console")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(userCmd)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
}

// withApp builds the full service graph for the duration of fn.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.New(ctx, &config.AppConfig)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
