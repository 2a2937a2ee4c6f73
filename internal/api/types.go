package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Asset describes a status record in a transport-friendly format.
type Asset struct {
	ID                   string `json:"id"`
	OwnerID              string `json:"ownerId"`
	RawObjectName        string `json:"rawObjectName"`
	Status               string `json:"status"`
	Title                string `json:"title,omitempty"`
	Description          string `json:"description,omitempty"`
	InputWidth           int    `json:"inputWidth,omitempty"`
	InputHeight          int    `json:"inputHeight,omitempty"`
	InputResolution      string `json:"inputResolution,omitempty"`
	TranscodingJobID     string `json:"transcodingJobId,omitempty"`
	ProcessedManifestURL string `json:"processedManifestUrl,omitempty"`
	ProcessedObjectName  string `json:"processedObjectName,omitempty"`
	ErrorMessage         string `json:"errorMessage,omitempty"`
	UploadedAt           string `json:"uploadedAt,omitempty"`
	UpdatedAt            string `json:"updatedAt,omitempty"`
	ProcessedAt          string `json:"processedAt,omitempty"`
}

// AssetStats provides a normalized stats payload.
type AssetStats struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// AssetListResponse wraps a collection of assets.
type AssetListResponse struct {
	Items []Asset `json:"items"`
}

// AssetResponse wraps a single asset.
type AssetResponse struct {
	Item Asset `json:"item"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Backend      string             `json:"backend"`
	StoreBackend string             `json:"storeBackend"`
	RawBucket    string             `json:"rawBucket"`
	Processed    string             `json:"processedBucket"`
	LockFilePath string             `json:"lockFilePath"`
	StartedAt    string             `json:"startedAt,omitempty"`
	Stats        AssetStats         `json:"stats"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// EventResponse reports how a trigger endpoint handled an event.
type EventResponse struct {
	Outcome string `json:"outcome"`
	AssetID string `json:"assetId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
