package model

import "time"

// RunStats aggregates counters for one pipeline invocation.
// Created fresh per run, owned by the dispatcher, reported at run end.
type RunStats struct {
	RunID      string
	Total      int // candidates seen
	Videos     int // candidates classified as video
	Skipped    int // already processed, filtered by dedup
	Dispatched int
	Succeeded  int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall time of the run.
func (s *RunStats) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// SyncSummary aggregates outcomes of one batch tag-sync run.
type SyncSummary struct {
	Matched int // records matched to a live bookmark
	Updated int // tag updates issued
	Skipped int // records with no matching bookmark
	Failed  int // update calls that errored
}
