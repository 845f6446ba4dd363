package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/clubledger/internal/config"
	"github.com/MrJamesThe3rd/clubledger/internal/logging"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Mirror payment gateway records into the club ledger and repair drift",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}

			if _, err := logging.New(os.Stderr, loaded.Log.Level, loaded.Log.Format); err != nil {
				return err
			}

			cfg = loaded

			return nil
		},
	}

	load := func() *config.Config { return cfg }

	rootCmd.AddCommand(syncCmd(load))
	rootCmd.AddCommand(backfillCmd(load))
	rootCmd.AddCommand(repairCmd(load))
	rootCmd.AddCommand(migrateCmd(load))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errDeclined) {
			slog.Info("aborted by operator")
			os.Exit(2)
		}

		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
