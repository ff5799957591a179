package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"vpn-subscription/internal/app"
	"vpn-subscription/internal/config"
	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	pg "vpn-subscription/internal/infra/db/postgres"
	"vpn-subscription/internal/infra/logging"
	"vpn-subscription/internal/infra/web"

	"github.com/spf13/cobra"
)

func withApp(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.LoadConfig(g.config, g.dev)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	ctx := logging.WithOperator(cmd.Context(), "vpnctl")

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func migrateCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				if err := pg.Migrate(ctx, a.Pool); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func sweepCommand(g *globalFlags) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate due subscribers once (demotions and teardowns)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				rep, err := a.Lifecycle.Sweep(ctx, batch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d demoted=%d deleted=%d failures=%d\n",
					rep.Scanned, rep.Demoted, rep.Deleted, rep.Failures)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 500, "maximum subscribers to evaluate")
	return cmd
}

func reconcileCommand(g *globalFlags) *cobra.Command {
	var (
		after time.Duration
		limit int
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Verify unsettled orders with the gateway and provision paid ones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				rep, err := a.Gate.Reconcile(ctx, after, limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d provisioned=%d failed=%d deferred=%d\n",
					rep.Scanned, rep.Provisioned, rep.Failed, rep.Deferred)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&after, "older-than", time.Hour, "only orders created before now minus this")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum orders to reconcile")
	return cmd
}

func ledgerCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and resolve failed compensations",
	}

	var (
		status string
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List rollback ledger entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := model.RollbackStatus(status)
			if st != "" && st != model.RollbackStatusPending && st != model.RollbackStatusResolved {
				return fmt.Errorf("unknown status %q", status)
			}
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				entries, err := a.Ledger.List(ctx, st, limit)
				if err != nil {
					return err
				}
				return printLedger(cmd.OutOrStdout(), entries)
			})
		},
	}
	list.Flags().StringVar(&status, "status", string(model.RollbackStatusPending), "pending|resolved, empty for all")
	list.Flags().IntVar(&limit, "limit", 100, "maximum entries")

	var note string
	resolve := &cobra.Command{
		Use:   "resolve ID",
		Short: "Mark an entry resolved after manual cleanup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				e, err := a.Ledger.Resolve(ctx, args[0], note)
				switch {
				case errors.Is(err, domain.ErrInvalidArgument):
					return errors.New("--note is required")
				case errors.Is(err, domain.ErrConflict):
					return fmt.Errorf("entry %s is already resolved", args[0])
				case err != nil:
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "resolved %s at %s\n", e.ID, e.ResolvedAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	resolve.Flags().StringVar(&note, "note", "", "what was done to fix the divergence")

	cmd.AddCommand(list, resolve)
	return cmd
}

func printLedger(w io.Writer, entries []*model.RollbackEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOPERATION\tSUBSCRIBER\tSERVER\tCLIENT\tSTATUS\tCREATED\tROLLBACK ERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Operation, e.SubscriberID, e.ServerID, e.ClientID, e.Status,
			e.CreatedAt.Format(time.RFC3339), e.RollbackError)
	}
	return tw.Flush()
}

// sampleTariffs are created by seed on an empty store.
var sampleTariffs = []struct {
	ID, Name  string
	Price     int64
	Devices   int
	TrafficGB int64
}{
	{"basic", "Basic", 150_000, 1, 50},
	{"family", "Family", 120_000, 3, 200},
	{"unlimited", "Unlimited", 250_000, 2, 0},
}

func seedCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create sample tariffs when none exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				existing, err := a.Tariffs.List(ctx)
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					fmt.Fprintf(out, "%d tariffs already present. No changes.\n", len(existing))
					return nil
				}
				for _, s := range sampleTariffs {
					t, err := a.Tariffs.Create(ctx, s.ID, s.Name, s.Price, s.Devices, s.TrafficGB)
					if err != nil {
						return fmt.Errorf("create %s: %w", s.ID, err)
					}
					fmt.Fprintf(out, "  + %s (%s, %d per device-month, %d devices)\n", t.ID, t.Name, t.PricePerMonth, t.DeviceLimit)
				}
				return nil
			})
		},
	}
}

func hashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password PASSWORD",
		Short: "Print a bcrypt hash for admin.password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := web.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
