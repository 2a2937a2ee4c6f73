package api

import (
	"time"

	"foreverstream/internal/assets"
)

// FromRecord converts a status record into its transport representation.
func FromRecord(rec *assets.Record) Asset {
	if rec == nil {
		return Asset{}
	}
	dto := Asset{
		ID:                   rec.ID,
		OwnerID:              rec.OwnerID,
		RawObjectName:        rec.RawObjectName,
		Status:               string(rec.Status),
		Title:                rec.Title,
		Description:          rec.Description,
		InputWidth:           rec.InputWidth,
		InputHeight:          rec.InputHeight,
		InputResolution:      rec.InputResolution,
		TranscodingJobID:     rec.TranscodingJobID,
		ProcessedManifestURL: rec.ProcessedManifestURL,
		ProcessedObjectName:  rec.ProcessedObjectName,
		ErrorMessage:         rec.ErrorMessage,
		UploadedAt:           formatTime(rec.UploadedAt),
		UpdatedAt:            formatTime(rec.UpdatedAt),
	}
	if rec.ProcessedAt != nil {
		dto.ProcessedAt = formatTime(*rec.ProcessedAt)
	}
	return dto
}

// FromRecords converts a slice of records, skipping nil entries.
func FromRecords(recs []*assets.Record) []Asset {
	out := make([]Asset, 0, len(recs))
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		out = append(out, FromRecord(rec))
	}
	return out
}

// FromStats converts store counts, filling in every known status.
func FromStats(stats assets.Stats) AssetStats {
	counts := make(map[string]int, len(assets.AllStatuses()))
	for _, status := range assets.AllStatuses() {
		counts[string(status)] = stats[status]
	}
	return AssetStats{Counts: counts, Total: stats.Total()}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
