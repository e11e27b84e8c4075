package main

import (
	"github.com/spf13/cobra"

	"squill/internal/daemonctl"
	"squill/internal/proxy"
)

func newLspProxyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp-proxy",
		Short: "Bridge LSP traffic on stdio to the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			// Tunnel over the supervisor's own connection: a fresh
			// stop-on-disconnect daemon would treat a closed probe as its
			// last client leaving and shut down before we could dial again.
			conn, _, err := daemonctl.EnsureDaemon(daemonctl.Options{
				SocketPath:   ctx.socketPath(),
				ConfigPath:   ctx.configFlag,
				LogDir:       cfg.Logging.Dir,
				LogPrefix:    cfg.Logging.FilePrefix,
				ProxyMode:    true,
				StartTimeout: cfg.StartTimeout(),
				PollInterval: cfg.PollInterval(),
			})
			if err != nil {
				return err
			}
			defer conn.Close()
			return proxy.Tunnel(proxy.Stdio(), conn)
		},
	}
}
