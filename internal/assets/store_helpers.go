package assets

import (
	"database/sql"
	"errors"
	"time"
)

const recordColumns = "id, owner_id, raw_object_name, status, title, description, input_width, input_height, input_resolution, transcoding_job_id, processed_manifest_url, processed_object_name, error_message, uploaded_at, processed_at, updated_at"

// timestampLayout is fixed-width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id              string
		ownerID         sql.NullString
		rawObject       sql.NullString
		statusStr       string
		title           sql.NullString
		description     sql.NullString
		inputWidth      sql.NullInt64
		inputHeight     sql.NullInt64
		inputResolution sql.NullString
		jobID           sql.NullString
		manifestURL     sql.NullString
		processedObject sql.NullString
		errorMessage    sql.NullString
		uploadedRaw     sql.NullString
		processedRaw    sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&ownerID,
		&rawObject,
		&statusStr,
		&title,
		&description,
		&inputWidth,
		&inputHeight,
		&inputResolution,
		&jobID,
		&manifestURL,
		&processedObject,
		&errorMessage,
		&uploadedRaw,
		&processedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:                   id,
		OwnerID:              ownerID.String,
		RawObjectName:        rawObject.String,
		Status:               Status(statusStr),
		Title:                title.String,
		Description:          description.String,
		InputWidth:           int(inputWidth.Int64),
		InputHeight:          int(inputHeight.Int64),
		InputResolution:      inputResolution.String,
		TranscodingJobID:     jobID.String,
		ProcessedManifestURL: manifestURL.String,
		ProcessedObjectName:  processedObject.String,
		ErrorMessage:         errorMessage.String,
	}
	if uploaded, err := parseTimeString(uploadedRaw.String); err == nil {
		rec.UploadedAt = uploaded
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rec.UpdatedAt = updated
	}
	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			rec.ProcessedAt = &processed
		}
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value <= 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timestampLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
