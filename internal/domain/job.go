package domain

import "time"

// JobStatus enumerates orchestration job lifecycle states as persisted by
// the job store.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusPartial   JobStatus = "PARTIAL"
	JobStatusFailed    JobStatus = "FAILED"
)

// Job encapsulates one queued orchestration request: the caller-supplied
// spec payload plus lifecycle bookkeeping. Artifacts land in the asset store;
// the job row only keeps the per-variant summary.
type Job struct {
	ID           string
	Status       JobStatus
	Modality     Modality
	Model        string
	VariantCount int
	SpecJSON     []byte
	Properties   []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StoredAsset is one persisted generation artifact: the row in
// generated_assets pointing at bytes in the file store.
type StoredAsset struct {
	ID           string
	RequestID    string
	VariantIndex int
	Platform     string
	AspectRatio  string
	StorageKey   string
	MIME         string
	Bytes        int64
	Width        int
	Height       int
	Attempts     int
	ThresholdMet bool
	Corrected    bool
	Properties   []byte
	CreatedAt    time.Time
}
