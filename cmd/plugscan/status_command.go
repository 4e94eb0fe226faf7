package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"plugscan/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and pipeline status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}
			renderDaemonStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of formatted output")
	return cmd
}

func renderDaemonStatus(out io.Writer, status api.DaemonStatus) {
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	runningKind := statusError
	runningMessage := "stopped"
	if status.Running {
		runningKind = statusOK
		runningMessage = fmt.Sprintf("pid %d", status.PID)
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", runningKind, runningMessage, colorize))
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DBPath, colorize))
	if status.Pipeline.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, status.Pipeline.LastError, colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Stages", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, health := range status.Pipeline.StageHealth {
		kind := statusOK
		message := "ready"
		if !health.Ready {
			kind = statusError
			message = health.Detail
		}
		fmt.Fprintln(out, renderStatusLine(formatStatusLabel(health.Name), kind, message, colorize))
	}
	fmt.Fprintln(out)

	if rows := buildStatsRows(status.Pipeline.VideoStats); len(rows) > 0 {
		for _, line := range renderSectionHeader("Videos", colorize) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	}

	if rows := buildStatsRows(status.Pipeline.RecordStats); len(rows) > 0 {
		for _, line := range renderSectionHeader("Records", colorize) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, renderTable([]string{"State", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	}

	if rows := buildQuotaRows(status.Quota); len(rows) > 0 {
		for _, line := range renderSectionHeader("Daily quota", colorize) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Service", "Used", "Limit", "Remaining"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
		))
	}
}
