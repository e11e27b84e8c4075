package main

import (
	"github.com/spf13/cobra"

	"squill/internal/version"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	cmd := &cobra.Command{
		Use:           version.Tool,
		Short:         "Postgres SQL linter and language server",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&ctx.socketFlag, "socket", "", "daemon socket path (defaults to the version-scoped runtime socket)")
	cmd.PersistentFlags().StringVar(&ctx.configFlag, "config", "", "path to the configuration file")

	cmd.AddCommand(
		newStartCommand(ctx),
		newStopCommand(ctx),
		newStatusCommand(ctx),
		newRunServerCommand(ctx),
		newLspProxyCommand(ctx),
		newPrintSocketCommand(ctx),
		newVersionCommand(),
	)
	return cmd
}
