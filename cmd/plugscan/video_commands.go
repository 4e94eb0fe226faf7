package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newVideoCommand(ctx *commandContext) *cobra.Command {
	videoCmd := &cobra.Command{
		Use:   "video",
		Short: "Inspect and manage queued videos",
	}

	videoCmd.AddCommand(newVideoListCommand(ctx))
	videoCmd.AddCommand(newVideoShowCommand(ctx))
	videoCmd.AddCommand(newVideoCancelCommand(ctx))
	videoCmd.AddCommand(newVideoRetryCommand(ctx))
	videoCmd.AddCommand(newVideoRemoveCommand(ctx))
	videoCmd.AddCommand(newVideoClearCommand(ctx))
	videoCmd.AddCommand(newVideoClearFailedCommand(ctx))

	return videoCmd
}

func newVideoListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			videos, err := ctx.client().ListVideos(cmd.Context(), listStatuses)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, videos)
			}
			if len(videos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No videos queued")
				return nil
			}
			table := renderTable(
				[]string{"ID", "Title", "Status", "Progress", "Created"},
				buildVideoRows(videos),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newVideoShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one video with its analysis records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVideoID(args[0])
			if err != nil {
				return err
			}
			client := ctx.client()
			video, err := client.GetVideo(cmd.Context(), id)
			if err != nil {
				return err
			}
			records, err := client.VideoRecords(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, map[string]any{"video": video, "records": records})
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"ID", fmt.Sprintf("%d", video.ID)},
				{"Title", videoTitle(video)},
				{"Source", video.SourcePath},
				{"Status", formatStatusLabel(video.Status)},
				{"Progress", formatProgress(video.Progress)},
				{"Cancel requested", yesNo(video.CancelRequested)},
				{"Created", formatDisplayTime(video.CreatedAt)},
				{"Updated", formatDisplayTime(video.UpdatedAt)},
			}
			if video.ErrorMessage != "" {
				rows = append(rows, []string{"Error", video.ErrorMessage})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))

			if len(records) == 0 {
				fmt.Fprintln(out, "No analysis records")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Record", "Video", "Window", "Score", "PPL", "Monetizable", "Status"},
				buildRecordRows(records),
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of tables")
	return cmd
}

func newVideoCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Request cancellation of a queued or processing video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVideoID(args[0])
			if err != nil {
				return err
			}
			if err := ctx.client().CancelVideo(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for video %d\n", id)
			return nil
		},
	}
}

func newVideoRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Re-queue failed or quota-parked videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseVideoID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			updated, err := ctx.client().RetryVideos(cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Re-queued %d video(s)\n", updated)
			return nil
		},
	}
}

func newVideoRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a video and its records from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVideoID(args[0])
			if err != nil {
				return err
			}
			if err := ctx.client().RemoveVideo(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed video %d\n", id)
			return nil
		},
	}
}

func newVideoClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed videos from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := ctx.client().ClearCompleted(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed video(s)\n", removed)
			return nil
		},
	}
}

func newVideoClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed videos from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := ctx.client().ClearFailed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d failed video(s)\n", removed)
			return nil
		},
	}
}

func parseVideoID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid video id %q", arg)
	}
	return id, nil
}
