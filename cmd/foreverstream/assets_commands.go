package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"foreverstream/internal/api"
	"foreverstream/internal/assets"
	"foreverstream/internal/ladder"
	"foreverstream/internal/media/ffprobe"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Inspect and seed asset status records",
	}

	assetsCmd.AddCommand(newAssetsListCommand(ctx))
	assetsCmd.AddCommand(newAssetsShowCommand(ctx))
	assetsCmd.AddCommand(newAssetsCreateCommand(ctx))
	assetsCmd.AddCommand(newAssetsStatsCommand(ctx))

	return assetsCmd
}

func newAssetsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := api.ParseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(c context.Context, store assets.Repository) error {
				items, err := api.NewAssetService(store).List(c, statuses...)
				if err != nil {
					return err
				}
				if jsonOutput {
					if items == nil {
						items = []api.Asset{}
					}
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No assets found")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						item.Status,
						dimensionsLabel(item.InputWidth, item.InputHeight),
						truncate(item.Title, 32),
						item.UploadedAt,
					})
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "Status", "Input", "Title", "Uploaded"}, rows, nil)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (uploaded, processing, processed, error)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newAssetsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single asset record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, store assets.Repository) error {
				item, err := api.NewAssetService(store).Describe(c, args[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("asset %s not found", args[0])
				}
				if jsonOutput {
					return writeJSON(cmd, item)
				}
				printAsset(cmd, *item)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newAssetsCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		owner       string
		rawObject   string
		title       string
		description string
		dimensions  string
		probePath   string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an uploaded record ahead of a raw upload",
		Long: "Create an uploaded record. The asset id is derived from --raw-object (base name without\n" +
			"extension); when --raw-object is omitted the id is <owner>-<unixMillis> and the raw object\n" +
			"is <id>.mp4. Dimensions come from --dimensions WxH or from probing a local copy with --probe.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			owner = strings.TrimSpace(owner)
			if owner == "" {
				return errors.New("--owner is required")
			}
			now := time.Now().UTC()
			rec := &assets.Record{
				OwnerID:     owner,
				Title:       title,
				Description: description,
				UploadedAt:  now,
			}
			if raw := strings.TrimSpace(rawObject); raw != "" {
				rec.RawObjectName = raw
				rec.ID = assets.IDFromObjectName(raw)
			} else {
				rec.ID = assets.NewID(owner, now)
				rec.RawObjectName = rec.ID + ".mp4"
			}

			switch {
			case strings.TrimSpace(probePath) != "":
				result, err := ffprobe.Inspect(cmd.Context(), cfg.Pipeline.FFprobeBinary, probePath)
				if err != nil {
					return err
				}
				if rec.InputWidth, rec.InputHeight, err = result.Dimensions(); err != nil {
					return fmt.Errorf("probe %s: %w", probePath, err)
				}
			case strings.TrimSpace(dimensions) != "":
				if rec.InputWidth, rec.InputHeight, err = ladder.ParseDimensions(dimensions); err != nil {
					return err
				}
			}

			return ctx.withStore(cmd, func(c context.Context, store assets.Repository) error {
				if err := store.Create(c, rec); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created asset %s (raw object %s)\n", rec.ID, rec.RawObjectName)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Uploading principal id")
	cmd.Flags().StringVar(&rawObject, "raw-object", "", "Raw bucket object name")
	cmd.Flags().StringVar(&title, "title", "", "Video title")
	cmd.Flags().StringVar(&description, "description", "", "Video description")
	cmd.Flags().StringVar(&dimensions, "dimensions", "", "Input frame size as WxH")
	cmd.Flags().StringVar(&probePath, "probe", "", "Local media file to probe for dimensions")
	return cmd
}

func newAssetsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show asset counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, store assets.Repository) error {
				stats, err := api.NewAssetService(store).Stats(c)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(stats.Counts)+1)
				for _, status := range assets.AllStatuses() {
					rows = append(rows, []string{string(status), strconv.Itoa(stats.Counts[string(status)])})
				}
				rows = append(rows, []string{"total", strconv.Itoa(stats.Total)})
				printTable(cmd.OutOrStdout(), []string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				return nil
			})
		},
	}
}

func printAsset(cmd *cobra.Command, item api.Asset) {
	rows := [][]string{
		{"ID", item.ID},
		{"Owner", item.OwnerID},
		{"Status", item.Status},
		{"Raw object", item.RawObjectName},
		{"Title", item.Title},
		{"Input", dimensionsLabel(item.InputWidth, item.InputHeight)},
		{"Job", item.TranscodingJobID},
		{"Manifest", item.ProcessedManifestURL},
		{"Output object", item.ProcessedObjectName},
		{"Error", item.ErrorMessage},
		{"Uploaded", item.UploadedAt},
		{"Updated", item.UpdatedAt},
		{"Processed", item.ProcessedAt},
	}
	filtered := rows[:0]
	for _, row := range rows {
		if row[1] != "" {
			filtered = append(filtered, row)
		}
	}
	printTable(cmd.OutOrStdout(), []string{"Field", "Value"}, filtered, nil)
}

func dimensionsLabel(width, height int) string {
	if width <= 0 || height <= 0 {
		return "-"
	}
	return fmt.Sprintf("%dx%d", width, height)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
