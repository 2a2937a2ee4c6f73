package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"foreverstream/internal/daemonrun"
	"foreverstream/internal/media/ffprobe"
	"foreverstream/internal/staging"
	"foreverstream/internal/trigger"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var skipClaim bool
	cmd := &cobra.Command{
		Use:   "process <raw-object>",
		Short: "Run the local transcode worker once for a raw object",
		Long: "Claim the asset for the raw object and run the local ffmpeg worker, exactly as the\n" +
			"legacy push route does. --skip-claim runs the worker without touching the claim gate.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				out := cmd.OutOrStdout()
				if skipClaim {
					result, err := rt.Worker.Process(c, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Published %s in %s\n", result.PublicURL, result.Duration.Round(time.Millisecond))
					return nil
				}
				event := trigger.ObjectEvent{Bucket: rt.Config.Buckets.Raw, Name: args[0]}
				outcome, err := rt.Ingest.HandleLocal(c, event)
				fmt.Fprintf(out, "Outcome: %s\n", outcome)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&skipClaim, "skip-claim", false, "Run the worker without claiming the status record")
	return cmd
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <asset-id>",
		Short: "Submit an uploaded asset to the managed transcoder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				if rt.Submitter == nil {
					return errors.New("submit requires pipeline.backend = managed")
				}
				rec, err := rt.Store.Get(c, args[0])
				if err != nil {
					return err
				}
				event := trigger.ObjectEvent{Bucket: rt.Config.Buckets.Raw, Name: rec.RawObjectName}
				outcome, err := rt.Ingest.Handle(c, event)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Outcome: %s\n", outcome)
				if outcome == trigger.OutcomeDispatched {
					if updated, err := rt.Store.Get(c, rec.ID); err == nil {
						fmt.Fprintf(out, "Job: %s\n", updated.TranscodingJobID)
					}
				}
				return nil
			})
		},
	}
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over stale processing assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(c context.Context, rt *daemonrun.Runtime) error {
				if rt.Reconciler == nil {
					return errors.New("reconcile requires pipeline.backend = managed")
				}
				report, err := rt.Reconciler.RunOnce(c)
				rows := [][]string{
					{"checked", strconv.Itoa(report.Checked)},
					{"completed", strconv.Itoa(report.Completed)},
					{"failed", strconv.Itoa(report.Failed)},
					{"pending", strconv.Itoa(report.Pending)},
					{"skipped", strconv.Itoa(report.Skipped)},
					{"raced", strconv.Itoa(report.Raced)},
					{"errors", strconv.Itoa(report.Errors)},
				}
				printTable(cmd.OutOrStdout(), []string{"Result", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				return err
			})
		},
	}
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale scratch directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if list {
				dirs, err := staging.ListDirectories(cfg.Paths.ScratchDir)
				if err != nil {
					return err
				}
				if len(dirs) == 0 {
					fmt.Fprintln(out, "No scratch directories")
					return nil
				}
				rows := make([][]string, 0, len(dirs))
				for _, dir := range dirs {
					rows = append(rows, []string{
						dir.Name,
						dir.ModTime.UTC().Format(time.RFC3339),
						strconv.FormatInt(dir.Size, 10),
						yesNo(dir.InUse),
					})
				}
				printTable(out, []string{"Directory", "Modified", "Bytes", "In use"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
				return nil
			}

			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			result := staging.CleanStale(cmd.Context(), cfg.Paths.ScratchDir, cfg.ScratchMaxAge(), logger)
			fmt.Fprintf(out, "Removed %d, skipped %d in use, %d errors\n", len(result.Removed), len(result.Skipped), len(result.Errors))
			if len(result.Errors) > 0 {
				first := result.Errors[0]
				return fmt.Errorf("sweep %s: %w", first.Path, first.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List scratch directories instead of removing stale ones")
	return cmd
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Probe a local media file with ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := ffprobe.Inspect(cmd.Context(), cfg.Pipeline.FFprobeBinary, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				_, err := cmd.OutOrStdout().Write(result.RawJSON())
				return err
			}
			width, height, dimErr := result.Dimensions()
			rows := [][]string{
				{"Format", result.Format.FormatName},
				{"Duration", fmt.Sprintf("%.2fs", result.DurationSeconds())},
				{"Video streams", strconv.Itoa(result.VideoStreamCount())},
				{"Audio streams", strconv.Itoa(result.AudioStreamCount())},
			}
			if dimErr == nil {
				rows = append(rows, []string{"Frame size", dimensionsLabel(width, height)})
			}
			printTable(cmd.OutOrStdout(), []string{"Field", "Value"}, rows, nil)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print raw ffprobe JSON")
	return cmd
}
