// Command vpnctl is the operator CLI: migrations, one-off sweeps and
// reconciliation, the rollback ledger and tariff seeding.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	config string
	dev    bool
}

func rootCommand() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "vpnctl",
		Short:         "Operate the VPN subscription service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.config, "config", "config.yaml", "path to YAML config file")
	root.PersistentFlags().BoolVar(&g.dev, "dev", false, "developer mode (console logs)")

	root.AddCommand(
		migrateCommand(&g),
		sweepCommand(&g),
		reconcileCommand(&g),
		ledgerCommand(&g),
		seedCommand(&g),
		hashPasswordCommand(),
	)
	return root
}
