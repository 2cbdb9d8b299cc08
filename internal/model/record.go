package model

import "time"

// Record status values.
const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

// ProcessedRecord is one persisted "already summarized" entry,
// keyed by canonical video ID. At most one record exists per video;
// reprocessing overwrites.
type ProcessedRecord struct {
	VideoID     string     `json:"videoId"`
	SourceID    int64      `json:"sourceId"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	OutputPath  string     `json:"outputPath"`
	Tags        []string   `json:"tags"`
	ProcessedAt time.Time  `json:"processedAt"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
}

// DispatchResult is the transient per-item outcome of one dispatch.
// It is consumed immediately to update the record store and run
// statistics, never persisted as its own entity.
type DispatchResult struct {
	Success       bool
	OutputPath    string
	GeneratedTags []string
	Summary       string
	Err           string
}
