package main

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"squill/internal/workspace"
)

func renderStatus(status *workspace.StatusResponse, colorize bool) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if colorize {
		t.Style().Color.Header = text.Colors{text.Bold}
	}
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"PID", status.PID},
		{"Version", status.Version},
		{"Uptime", (time.Duration(status.UptimeSeconds) * time.Second).String()},
		{"Socket", status.SocketPath},
		{"Active sessions", status.ActiveSessions},
	})
	return t.Render()
}

func shouldColorize(cmd *cobra.Command) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	out, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
}
