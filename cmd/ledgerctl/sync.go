package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/clubledger/internal/config"
	"github.com/MrJamesThe3rd/clubledger/internal/report"
	"github.com/MrJamesThe3rd/clubledger/internal/syncer"
)

func syncCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronise gateway records into the ledger",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "historical",
		Short: "Mirror every record created since SYNC_HISTORICAL_EPOCH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, cfg(), func(s *syncer.Syncer) (*syncer.Summary, error) {
				return s.Historical(cmd.Context())
			})
		},
	})

	return cmd
}

func backfillCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill <cutoff>",
		Short: "Mirror records created at or after cutoff, checkout sessions first",
		Long: `Mirror records created at or after cutoff.

The cutoff is an RFC 3339 timestamp or a date:
  ledgerctl backfill 2024-09-01
  ledgerctl backfill 2024-09-01T00:00:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := parseCutoff(args[0])
			if err != nil {
				return err
			}

			return runSync(cmd, cfg(), func(s *syncer.Syncer) (*syncer.Summary, error) {
				return s.Backfill(cmd.Context(), cutoff)
			})
		},
	}
}

func parseCutoff(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cutoff %q: want RFC 3339 or YYYY-MM-DD", s)
	}

	return t, nil
}

func runSync(cmd *cobra.Command, cfg *config.Config, run func(*syncer.Syncer) (*syncer.Summary, error)) error {
	if err := requireStripeKey(cfg); err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close(cmd.Context())

	summary, err := run(a.syncer)
	if summary != nil {
		if renderErr := report.Summary(cmd.OutOrStdout(), summary); renderErr != nil {
			return renderErr
		}
	}

	return err
}
