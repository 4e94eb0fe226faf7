package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plugscan/internal/api"
	"plugscan/internal/config"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Queue a video file for endorsement analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}

			result, err := ctx.client().AddVideo(cmd.Context(), path, strings.TrimSpace(title))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Outcome == api.AddOutcomeDuplicate {
				fmt.Fprintf(out, "Already queued as video %d (%s)\n", result.Video.ID, formatStatusLabel(result.Video.Status))
				return nil
			}
			fmt.Fprintf(out, "Queued video %d: %s\n", result.Video.ID, videoTitle(result.Video))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Display title for the video")
	return cmd
}
