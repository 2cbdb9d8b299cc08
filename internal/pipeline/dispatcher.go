package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"dropsum/internal/model"
	"dropsum/internal/tagsync"
	"dropsum/internal/video"
)

// Default pause between batches, decoupled from per-request rate
// limiting; it only keeps the summarizer and the tag-sync API from
// being burst at simultaneously.
const defaultBatchPause = 2 * time.Second

// Summarizer runs the external summarization for one item.
type Summarizer interface {
	Summarize(ctx context.Context, item model.BookmarkItem, outputDir string) (*model.DispatchResult, error)
}

// RecordStore is the slice of the record store the dispatcher needs.
type RecordStore interface {
	HasItem(sourceID int64) (bool, error)
	Upsert(rec model.ProcessedRecord) error
}

// TagSyncer pushes merged tags for a freshly summarized item.
type TagSyncer interface {
	SyncItem(ctx context.Context, item model.BookmarkItem, generated []string) (bool, error)
}

// Options configure one dispatch run.
type Options struct {
	Concurrency int  // batch size, items dispatched at once
	MaxItems    int  // budget after dedup filtering, 0 = no cap
	Force       bool // bypass the dedup filter, overwrite prior results
}

// Dispatcher drives candidate items through the per-item
// summarize → persist → sync pipeline in concurrency-capped batches.
type Dispatcher struct {
	summarizer Summarizer
	store      RecordStore
	syncer     TagSyncer
	logger     *log.Logger
	outputDir  string
	batchPause time.Duration
}

// NewDispatcher creates a dispatcher writing artifacts to outputDir.
func NewDispatcher(summarizer Summarizer, store RecordStore, syncer TagSyncer, outputDir string, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		summarizer: summarizer,
		store:      store,
		syncer:     syncer,
		logger:     logger,
		outputDir:  outputDir,
		batchPause: defaultBatchPause,
	}
}

// SetBatchPause overrides the pause between batches (tests use 0).
func (d *Dispatcher) SetBatchPause(pause time.Duration) {
	d.batchPause = pause
}

// Run dispatches candidates through the pipeline and reports run
// statistics. Individual item failures never abort the run; only
// pipeline setup (the output directory) can.
func (d *Dispatcher) Run(ctx context.Context, candidates []model.BookmarkItem, opts Options) (*model.RunStats, error) {
	if opts.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", opts.Concurrency)
	}
	if err := os.MkdirAll(d.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	stats := &model.RunStats{
		RunID:     model.NewRunID(),
		Total:     len(candidates),
		StartedAt: time.Now(),
	}

	pending := make([]model.BookmarkItem, 0, len(candidates))
	for _, item := range candidates {
		if _, ok := video.Classify(item.Link); ok {
			stats.Videos++
		}
		if !opts.Force {
			processed, err := d.store.HasItem(item.ID)
			if err != nil {
				// Fail open: over-dispatching a duplicate is cheaper
				// than silently dropping a legitimate item.
				d.logger.Printf("dedup check failed for item %d, treating as unprocessed: %v", item.ID, err)
			} else if processed {
				stats.Skipped++
				continue
			}
		}
		pending = append(pending, item)
	}

	if opts.MaxItems > 0 && len(pending) > opts.MaxItems {
		pending = pending[:opts.MaxItems]
	}
	stats.Dispatched = len(pending)

	d.logger.Printf("[RUN %s] dispatching %d of %d candidates (%d skipped)",
		stats.RunID, stats.Dispatched, stats.Total, stats.Skipped)

	var mu sync.Mutex
	for start := 0; start < len(pending); start += opts.Concurrency {
		end := start + opts.Concurrency
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		var wg sync.WaitGroup
		for _, item := range batch {
			wg.Add(1)
			go func(item model.BookmarkItem) {
				defer wg.Done()
				ok := d.processItem(ctx, item)

				mu.Lock()
				if ok {
					stats.Succeeded++
				} else {
					stats.Failed++
				}
				mu.Unlock()
			}(item)
		}
		wg.Wait()

		// Pause only when another batch is coming.
		if end < len(pending) {
			select {
			case <-ctx.Done():
				stats.FinishedAt = time.Now()
				return stats, ctx.Err()
			case <-time.After(d.batchPause):
			}
		}
	}

	stats.FinishedAt = time.Now()
	d.logger.Printf("[RUN %s] done: %d succeeded, %d failed, %d skipped",
		stats.RunID, stats.Succeeded, stats.Failed, stats.Skipped)
	return stats, nil
}

// processItem runs the per-item pipeline. Every failure is absorbed
// here so one item can never take down its batch siblings.
func (d *Dispatcher) processItem(ctx context.Context, item model.BookmarkItem) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("item %d panicked: %v", item.ID, r)
			ok = false
		}
	}()

	res, err := d.summarizer.Summarize(ctx, item, d.outputDir)
	if err != nil {
		d.logger.Printf("item %d (%s): %v", item.ID, item.Link, err)
		d.recordFailure(item, err.Error())
		return false
	}
	if !res.Success {
		d.logger.Printf("item %d (%s): %s", item.ID, item.Link, res.Err)
		d.recordFailure(item, res.Err)
		return false
	}

	rec := model.ProcessedRecord{
		VideoID:     recordKey(item),
		SourceID:    item.ID,
		URL:         item.Link,
		Title:       item.Title,
		OutputPath:  res.OutputPath,
		Tags:        tagsync.Merged(item.Tags, res.GeneratedTags),
		ProcessedAt: time.Now(),
		Status:      model.StatusDone,
	}
	if err := d.store.Upsert(rec); err != nil {
		// The summary artifact exists, but the caller needs to know
		// the bookkeeping may be missing.
		d.logger.Printf("item %d: record not durably stored: %v", item.ID, err)
	}

	if _, err := d.syncer.SyncItem(ctx, item, res.GeneratedTags); err != nil {
		d.logger.Printf("item %d: tag sync failed: %v", item.ID, err)
	}

	return true
}

// recordFailure keeps a trace of the failed attempt. Failed records do
// not suppress the dedup check, so the item is retried next run.
func (d *Dispatcher) recordFailure(item model.BookmarkItem, cause string) {
	rec := model.ProcessedRecord{
		VideoID:     recordKey(item),
		SourceID:    item.ID,
		URL:         item.Link,
		Title:       item.Title,
		ProcessedAt: time.Now(),
		Status:      model.StatusFailed,
		Error:       cause,
	}
	if err := d.store.Upsert(rec); err != nil {
		d.logger.Printf("item %d: failure not recorded: %v", item.ID, err)
	}
}

// recordKey returns the canonical video ID, falling back to the stable
// filename key for URLs no platform pattern recognizes.
func recordKey(item model.BookmarkItem) string {
	if id := video.ExtractID(item.Link); id != "" {
		return id
	}
	return video.Filename(item)
}
