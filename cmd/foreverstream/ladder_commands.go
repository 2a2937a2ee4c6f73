package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"foreverstream/internal/ladder"
	"foreverstream/internal/streamplan"
)

func newLadderCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:         "ladder <width> <height>",
		Short:       "Show the rendition ladder for a frame size",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			renditions, err := computeLadder(args)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, renditions)
			}
			rows := make([][]string, 0, len(renditions))
			for _, r := range renditions {
				rows = append(rows, []string{r.Label, r.Resolution(), formatBitrate(r.Bitrate)})
			}
			printTable(cmd.OutOrStdout(), []string{"Rendition", "Resolution", "Bitrate"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight})
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newPlanCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:         "plan <width> <height>",
		Short:       "Show the stream plan submitted for a frame size",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			renditions, err := computeLadder(args)
			if err != nil {
				return err
			}
			plan, err := streamplan.Build(renditions)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, plan)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(plan.ElementaryStreams))
			for _, es := range plan.ElementaryStreams {
				switch {
				case es.Video != nil:
					rows = append(rows, []string{es.Key, "video",
						fmt.Sprintf("%s %dx%d", es.Video.Codec, es.Video.Width, es.Video.Height),
						formatBitrate(es.Video.Bitrate)})
				case es.Audio != nil:
					rows = append(rows, []string{es.Key, "audio",
						fmt.Sprintf("%s %d Hz", es.Audio.Codec, es.Audio.SampleRate),
						formatBitrate(es.Audio.Bitrate)})
				}
			}
			fmt.Fprintln(out, "Elementary streams")
			printTable(out, []string{"Key", "Kind", "Encoding", "Bitrate"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})

			rows = rows[:0]
			for _, mux := range plan.MuxStreams {
				rows = append(rows, []string{mux.Key, mux.Container, fmt.Sprint(mux.ElementaryStreams)})
			}
			fmt.Fprintln(out, "Mux streams")
			printTable(out, []string{"Key", "Container", "Streams"}, rows, nil)

			for _, m := range plan.Manifests {
				fmt.Fprintf(out, "Manifest %s (%s): %v\n", m.FileName, m.Type, m.MuxStreams)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func computeLadder(args []string) ([]ladder.Rendition, error) {
	width, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid width %q", args[0])
	}
	height, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, fmt.Errorf("invalid height %q", args[1])
	}
	return ladder.Compute(width, height)
}

func formatBitrate(bps int) string {
	switch {
	case bps >= 1_000_000:
		return strconv.FormatFloat(float64(bps)/1_000_000, 'f', -1, 64) + " Mbps"
	case bps >= 1_000:
		return strconv.FormatFloat(float64(bps)/1_000, 'f', -1, 64) + " kbps"
	default:
		return strconv.Itoa(bps) + " bps"
	}
}
