package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"squill/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tool version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", version.Tool, version.Version)
			return nil
		},
	}
}

func newPrintSocketCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "print-socket",
		Short: "Print the daemon socket path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), ctx.socketPath())
			return nil
		},
	}
}
