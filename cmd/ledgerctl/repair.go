package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/clubledger/internal/config"
	"github.com/MrJamesThe3rd/clubledger/internal/repair"
	"github.com/MrJamesThe3rd/clubledger/internal/report"
)

type procedure func(*repair.Toolkit, context.Context, repair.Options) (*repair.Report, error)

func repairCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Fix drift between the ledger and member records",
	}

	cmd.AddCommand(
		repairProcedureCmd(cfg, "link-orphans", "Link unlinked ledger records through cached member ids", (*repair.Toolkit).LinkOrphans),
		repairProcedureCmd(cfg, "backfill-member-ids", "Fill empty cached external ids on members from the ledger", (*repair.Toolkit).BackfillMemberIDs),
		repairProcedureCmd(cfg, "normalize-metadata", "Rewrite malformed ledger metadata to an empty object", (*repair.Toolkit).NormalizeMetadata),
	)

	return cmd
}

func repairProcedureCmd(cfg func() *config.Config, use, short string, run procedure) *cobra.Command {
	var dryRun, yes bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

The planned changes are always printed first. With --dry-run nothing is
written. Otherwise an operator at a terminal is asked to confirm; without a
terminal (cron, CI) or with --yes the changes are applied directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, cfg())
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			plan, err := run(a.toolkit, ctx, repair.Options{DryRun: true})
			if err != nil {
				return err
			}

			if err := report.Repair(cmd.OutOrStdout(), plan); err != nil {
				return err
			}

			if dryRun || len(plan.Changes) == 0 {
				return nil
			}

			if err := approve(cmd.InOrStdin(), yes, "Apply these changes?"); err != nil {
				return err
			}

			applied, err := run(a.toolkit, ctx, repair.Options{})
			if applied != nil {
				if renderErr := report.Repair(cmd.OutOrStdout(), applied); renderErr != nil {
					return renderErr
				}
			}

			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the changes without writing them")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "apply without asking for confirmation")

	return cmd
}
