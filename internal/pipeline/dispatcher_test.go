package pipeline_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dropsum/internal/model"
	"dropsum/internal/pipeline"
	"dropsum/internal/store"
)

// fakeSummarizer counts in-flight invocations and can be told to fail
// specific source IDs.
type fakeSummarizer struct {
	mu          sync.Mutex
	inFlight    int32
	maxInFlight int32
	failIDs     map[int64]bool
	panicIDs    map[int64]bool
	calls       []int64
	delay       time.Duration
}

func (f *fakeSummarizer) Summarize(_ context.Context, item model.BookmarkItem, outputDir string) (*model.DispatchResult, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, item.ID)
	f.mu.Unlock()

	if f.panicIDs[item.ID] {
		panic(fmt.Sprintf("summarizer blew up on item %d", item.ID))
	}
	if f.failIDs[item.ID] {
		return &model.DispatchResult{Success: false, Err: "video is inaccessible"}, nil
	}
	return &model.DispatchResult{
		Success:       true,
		OutputPath:    filepath.Join(outputDir, fmt.Sprintf("%d.md", item.ID)),
		GeneratedTags: []string{"generated"},
	}, nil
}

type fakeSyncer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSyncer) SyncItem(context.Context, model.BookmarkItem, []string) (bool, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return true, nil
}

func discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func candidates(n int) []model.BookmarkItem {
	items := make([]model.BookmarkItem, n)
	for i := range items {
		items[i] = model.BookmarkItem{
			ID:    int64(i + 1),
			Title: fmt.Sprintf("video %d", i+1),
			Link:  fmt.Sprintf("https://www.youtube.com/watch?v=aaaaaaaaa%02d", i+1),
			Tags:  []string{"orig"},
		}
	}
	return items
}

func newTestStore(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "processed.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newDispatcher(t *testing.T, s *store.SQLite, summ pipeline.Summarizer) *pipeline.Dispatcher {
	t.Helper()
	d := pipeline.NewDispatcher(summ, s, &fakeSyncer{}, t.TempDir(), discard())
	d.SetBatchPause(0)
	return d
}

func TestRun_IdempotentDedup(t *testing.T) {
	s := newTestStore(t)
	summ := &fakeSummarizer{}
	d := newDispatcher(t, s, summ)
	items := candidates(4)

	first, err := d.Run(context.Background(), items, pipeline.Options{Concurrency: 2})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Succeeded != 4 || first.Failed != 0 {
		t.Fatalf("first run: %+v", first)
	}

	second, err := d.Run(context.Background(), items, pipeline.Options{Concurrency: 2})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Dispatched != 0 || second.Succeeded != 0 {
		t.Errorf("second run must dispatch nothing: %+v", second)
	}
	if second.Skipped != first.Succeeded {
		t.Errorf("expected skipped %d to equal first run's succeeded %d", second.Skipped, first.Succeeded)
	}
}

func TestRun_ForceReprocessUpserts(t *testing.T) {
	s := newTestStore(t)
	summ := &fakeSummarizer{}
	d := newDispatcher(t, s, summ)
	items := candidates(1)

	if _, err := d.Run(context.Background(), items, pipeline.Options{Concurrency: 1}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	stats, err := d.Run(context.Background(), items, pipeline.Options{Concurrency: 1, Force: true})
	if err != nil {
		t.Fatalf("force run: %v", err)
	}
	if stats.Skipped != 0 || stats.Succeeded != 1 {
		t.Errorf("force run must bypass dedup: %+v", stats)
	}

	records, err := s.List(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected exactly one record after force reprocess, got %d", len(records))
	}
}

func TestRun_BatchIsolation(t *testing.T) {
	s := newTestStore(t)
	summ := &fakeSummarizer{failIDs: map[int64]bool{3: true}}
	d := newDispatcher(t, s, summ)

	stats, err := d.Run(context.Background(), candidates(5), pipeline.Options{Concurrency: 2})
	if err != nil {
		t.Fatalf("run must not fail on item errors: %v", err)
	}
	if stats.Succeeded != 4 || stats.Failed != 1 {
		t.Errorf("expected 4 succeeded / 1 failed, got %+v", stats)
	}

	for _, id := range []int64{1, 2, 4, 5} {
		ok, err := s.HasItem(id)
		if err != nil {
			t.Fatalf("has item %d: %v", id, err)
		}
		if !ok {
			t.Errorf("item %d should have a persisted record", id)
		}
	}
	// The failed attempt leaves a trace but does not count as
	// processed, so the item is retried next run.
	if ok, _ := s.HasItem(3); ok {
		t.Error("failed item 3 must still count as unprocessed")
	}
	rec, err := s.Get("aaaaaaaaa03")
	if err != nil {
		t.Fatalf("get failed record: %v", err)
	}
	if rec.Status != model.StatusFailed || rec.Error == "" {
		t.Errorf("expected a failed record with cause, got %+v", rec)
	}
}

func TestRun_PanicIsolatedToItem(t *testing.T) {
	s := newTestStore(t)
	summ := &fakeSummarizer{panicIDs: map[int64]bool{2: true}}
	d := newDispatcher(t, s, summ)

	stats, err := d.Run(context.Background(), candidates(3), pipeline.Options{Concurrency: 3})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Succeeded != 2 || stats.Failed != 1 {
		t.Errorf("expected 2 succeeded / 1 failed, got %+v", stats)
	}
}

func TestRun_ConcurrencyCapRespected(t *testing.T) {
	s := newTestStore(t)
	summ := &fakeSummarizer{delay: 20 * time.Millisecond}
	d := newDispatcher(t, s, summ)

	stats, err := d.Run(context.Background(), candidates(10), pipeline.Options{Concurrency: 3})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Succeeded != 10 {
		t.Fatalf("expected 10 succeeded, got %+v", stats)
	}
	if max := atomic.LoadInt32(&summ.maxInFlight); max > 3 {
		t.Errorf("observed %d summarizer calls in flight, cap is 3", max)
	}
}

func TestRun_MaxItemsBudget(t *testing.T) {
	s := newTestStore(t)
	summ := &fakeSummarizer{}
	d := newDispatcher(t, s, summ)

	stats, err := d.Run(context.Background(), candidates(10), pipeline.Options{Concurrency: 3, MaxItems: 4})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Dispatched != 4 || stats.Succeeded != 4 {
		t.Errorf("expected 4 dispatched/succeeded, got %+v", stats)
	}
	if stats.Total != 10 {
		t.Errorf("expected total 10, got %+v", stats)
	}
}

func TestRun_MergedTagsPersisted(t *testing.T) {
	s := newTestStore(t)
	summ := &fakeSummarizer{}
	d := newDispatcher(t, s, summ)

	if _, err := d.Run(context.Background(), candidates(1), pipeline.Options{Concurrency: 1}); err != nil {
		t.Fatalf("run: %v", err)
	}

	rec, err := s.Get("aaaaaaaaa01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rec.Tags) != 2 {
		t.Errorf("expected original+generated tags, got %v", rec.Tags)
	}
}

func TestRun_InlineSyncInvoked(t *testing.T) {
	s := newTestStore(t)
	syncer := &fakeSyncer{}
	d := pipeline.NewDispatcher(&fakeSummarizer{}, s, syncer, t.TempDir(), discard())
	d.SetBatchPause(0)

	if _, err := d.Run(context.Background(), candidates(3), pipeline.Options{Concurrency: 2}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if syncer.calls != 3 {
		t.Errorf("expected 3 inline syncs, got %d", syncer.calls)
	}
}
