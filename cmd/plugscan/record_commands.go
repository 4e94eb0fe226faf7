package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Review and route analysis records",
	}

	recordCmd.AddCommand(newRecordListCommand(ctx))
	recordCmd.AddCommand(newRecordShowCommand(ctx))
	recordCmd.AddCommand(newRecordApproveCommand(ctx))
	recordCmd.AddCommand(newRecordRejectCommand(ctx))
	recordCmd.AddCommand(newRecordTransitionCommand(ctx))

	return recordCmd
}

func newRecordListCommand(ctx *commandContext) *cobra.Command {
	var listStates []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analysis records",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := ctx.client().ListRecords(cmd.Context(), listStates)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No records")
				return nil
			}
			table := renderTable(
				[]string{"Record", "Video", "Window", "Score", "PPL", "Monetizable", "Status"},
				buildRecordRows(records),
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&listStates, "state", nil, "Filter by review state (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newRecordShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one record with its review history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := ctx.client().GetRecord(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, record)
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"ID", record.ID},
				{"Video", fmt.Sprintf("%d", record.VideoID)},
				{"Window", formatWindow(record.WindowStart, record.WindowEnd)},
				{"Fused confidence", fmt.Sprintf("%.2f", record.FusedConfidence)},
				{"Sentiment", fmt.Sprintf("%.2f", record.SentimentScore)},
				{"Endorsement", fmt.Sprintf("%.2f", record.EndorsementScore)},
				{"Source trust", fmt.Sprintf("%.2f", record.SourceTrustScore)},
				{"Attractiveness", fmt.Sprintf("%d", record.Attractiveness)},
				{"PPL", formatPPL(record.PPLClass, record.PPLProbability)},
				{"Monetizable", yesNo(record.Monetizable)},
				{"Status", formatStatusLabel(record.Status)},
			}
			if record.ProductLink != "" {
				rows = append(rows, []string{"Product link", record.ProductLink})
			}
			if len(record.Product) > 0 {
				rows = append(rows, []string{"Product", string(record.Product)})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))

			if len(record.StatusHistory) == 0 {
				return nil
			}
			historyRows := make([][]string, 0, len(record.StatusHistory))
			for _, change := range record.StatusHistory {
				historyRows = append(historyRows, []string{
					formatDisplayTime(change.Timestamp),
					formatStatusLabel(change.From),
					formatStatusLabel(change.To),
					change.Note,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"When", "From", "To", "Note"},
				historyRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of tables")
	return cmd
}

func newRecordApproveCommand(ctx *commandContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a record awaiting review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transitionRecord(ctx, cmd, args[0], "approved", note)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Reviewer note recorded on the transition")
	return cmd
}

func newRecordRejectCommand(ctx *commandContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a record awaiting review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transitionRecord(ctx, cmd, args[0], "rejected", note)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Reviewer note recorded on the transition")
	return cmd
}

func newRecordTransitionCommand(ctx *commandContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "transition <id> <state>",
		Short: "Move a record to a review state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transitionRecord(ctx, cmd, args[0], args[1], note)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Reviewer note recorded on the transition")
	return cmd
}

func transitionRecord(ctx *commandContext, cmd *cobra.Command, id, to, note string) error {
	record, err := ctx.client().TransitionRecord(cmd.Context(), strings.TrimSpace(id), strings.TrimSpace(to), strings.TrimSpace(note))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Record %s is now %s\n", shortRecordID(record.ID), formatStatusLabel(record.Status))
	return nil
}
