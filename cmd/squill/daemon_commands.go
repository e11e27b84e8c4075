package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"squill/internal/daemonctl"
	"squill/internal/transport"
	"squill/internal/workspace"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			conn, started, err := daemonctl.EnsureDaemon(daemonctl.Options{
				SocketPath:   ctx.socketPath(),
				ConfigPath:   ctx.configFlag,
				LogDir:       cfg.Logging.Dir,
				LogPrefix:    cfg.Logging.FilePrefix,
				StartTimeout: cfg.StartTimeout(),
				PollInterval: cfg.PollInterval(),
			})
			if err != nil {
				return err
			}
			conn.Close()
			if started {
				fmt.Fprintln(cmd.OutOrStdout(), "The server was successfully started")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "The server was already running")
			}
			return nil
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := workspace.Dial(ctx.socketPath())
			if err != nil {
				if errors.Is(err, transport.ErrUnavailable) {
					fmt.Fprintln(cmd.OutOrStdout(), "The server was not running")
					return nil
				}
				return err
			}
			defer client.Close()
			if err := client.Shutdown(); err != nil {
				return fmt.Errorf("stop daemon: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "The server was successfully stopped")
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := workspace.Dial(ctx.socketPath())
			if err != nil {
				if errors.Is(err, transport.ErrUnavailable) {
					fmt.Fprintln(cmd.OutOrStdout(), "The server is not running")
					return nil
				}
				return err
			}
			defer client.Close()
			status, err := client.Status()
			if err != nil {
				return fmt.Errorf("query daemon status: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status, shouldColorize(cmd)))
			return nil
		},
	}
}
