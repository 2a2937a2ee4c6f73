package assets

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a video asset.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusError      Status = "error"
)

var allStatuses = []Status{
	StatusUploaded,
	StatusProcessing,
	StatusProcessed,
	StatusError,
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a Status. Matching is exact; stored
// values are case-sensitive.
func ParseStatus(value string) (Status, bool) {
	for _, status := range allStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusProcessed || s == StatusError
}

// Record is the persisted state of one uploaded video.
type Record struct {
	ID                   string     `json:"id"`
	OwnerID              string     `json:"ownerId"`
	RawObjectName        string     `json:"rawObjectName"`
	Status               Status     `json:"status"`
	Title                string     `json:"title,omitempty"`
	Description          string     `json:"description,omitempty"`
	InputWidth           int        `json:"inputWidth,omitempty"`
	InputHeight          int        `json:"inputHeight,omitempty"`
	InputResolution      string     `json:"inputResolution,omitempty"`
	TranscodingJobID     string     `json:"transcodingJobId,omitempty"`
	ProcessedManifestURL string     `json:"processedManifestUrl,omitempty"`
	ProcessedObjectName  string     `json:"processedObjectName,omitempty"`
	ErrorMessage         string     `json:"errorMessage,omitempty"`
	UploadedAt           time.Time  `json:"uploadedAt"`
	ProcessedAt          *time.Time `json:"processedAt,omitempty"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// HasDimensions reports whether both input dimensions are known.
func (r *Record) HasDimensions() bool {
	return r != nil && r.InputWidth > 0 && r.InputHeight > 0
}

// Fields carries the optional values written alongside a status transition.
type Fields struct {
	TranscodingJobID     string
	InputResolution      string
	ProcessedManifestURL string
	ProcessedObjectName  string
	ProcessedAt          *time.Time
	ErrorMessage         string
}

// Eligibility is the outcome of ClaimForProcessing.
type Eligibility int

const (
	// Eligible means the caller won the claim and owns the processing work.
	Eligible Eligibility = iota
	// AlreadyProcessing means another caller claimed the asset or it has
	// already left the uploaded state.
	AlreadyProcessing
	// NotFound means no record exists for the id.
	NotFound
)

func (e Eligibility) String() string {
	switch e {
	case Eligible:
		return "eligible"
	case AlreadyProcessing:
		return "already_processing"
	case NotFound:
		return "not_found"
	default:
		return fmt.Sprintf("eligibility(%d)", int(e))
	}
}

// NewID derives an asset id from the owner and upload time: <ownerId>-<unixMillis>.
func NewID(ownerID string, uploadedAt time.Time) string {
	return fmt.Sprintf("%s-%d", strings.TrimSpace(ownerID), uploadedAt.UnixMilli())
}

// Stats counts records per status.
type Stats map[Status]int

// Total returns the number of records across all statuses.
func (s Stats) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// IDFromObjectName derives the asset id from a raw object name: the base name
// with its final extension removed.
func IDFromObjectName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	return name
}
