package transcoder

import (
	"context"
	"strings"

	"foreverstream/internal/objectstore"
	"foreverstream/internal/streamplan"
)

// JobState is the backend-neutral lifecycle of a submitted job.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateUnknown   JobState = "unknown"
)

// Done reports whether the job reached a final state.
func (s JobState) Done() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// JobRequest is everything a backend needs to create a job.
type JobRequest struct {
	InputURI  string
	OutputURI string
	Plan      streamplan.Plan
}

// JobStatus is a snapshot of a submitted job.
type JobStatus struct {
	Name         string
	State        JobState
	ErrorMessage string
}

// Backend creates and inspects managed transcoding jobs.
type Backend interface {
	CreateJob(ctx context.Context, req JobRequest) (string, error)
	GetJob(ctx context.Context, name string) (JobStatus, error)
}

// InputURI returns the gs:// location of a raw upload.
func InputURI(rawBucket, rawObject string) string {
	return objectstore.URI(rawBucket, rawObject)
}

// OutputURI returns the gs:// prefix a job writes its outputs under. It always
// ends in "/".
func OutputURI(processedBucket, assetID string) string {
	return objectstore.URI(processedBucket, strings.TrimSuffix(assetID, "/")+"/")
}

// ManifestObjectName is the processed-bucket object a finished job leaves
// behind for the asset.
func ManifestObjectName(assetID string) string {
	return assetID + "/" + streamplan.ManifestFileName
}

// ManifestURL returns the public manifest location recorded on completion.
func ManifestURL(publicBaseURL, processedBucket, assetID string) string {
	return objectstore.PublicURL(publicBaseURL, processedBucket, ManifestObjectName(assetID))
}
