package tagsync

import (
	"context"
	"log"
	"net/url"
	"sort"
	"strings"

	"dropsum/internal/model"
	"dropsum/internal/video"
)

// BookmarkAPI is the slice of the source service the engine needs.
type BookmarkAPI interface {
	Fetch(ctx context.Context, collection int64, tagFilter string, maxItems int) ([]model.BookmarkItem, error)
	UpdateTags(ctx context.Context, itemID int64, tags []string) error
}

// RecordSource lists the persisted processed records.
type RecordSource interface {
	List(limit int) ([]model.ProcessedRecord, error)
}

// Engine reconciles locally computed tag sets back to the source
// service.
type Engine struct {
	api    BookmarkAPI
	store  RecordSource
	logger *log.Logger
}

// NewEngine creates a tag-sync engine.
func NewEngine(api BookmarkAPI, store RecordSource, logger *log.Logger) *Engine {
	return &Engine{api: api, store: store, logger: logger}
}

// Merged returns the sorted, de-duplicated union of two tag sets.
func Merged(original, generated []string) []string {
	set := make(map[string]struct{}, len(original)+len(generated))
	for _, t := range original {
		set[t] = struct{}{}
	}
	for _, t := range generated {
		set[t] = struct{}{}
	}

	merged := make([]string, 0, len(set))
	for t := range set {
		merged = append(merged, t)
	}
	sort.Strings(merged)
	return merged
}

// Equal compares two tag sets order-independently.
func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// SyncItem pushes the merged tag set for one freshly summarized
// bookmark, skipping the call when the merged set already equals the
// bookmark's current tags. Returns whether an update was issued.
func (e *Engine) SyncItem(ctx context.Context, item model.BookmarkItem, generated []string) (bool, error) {
	if item.ID <= 0 {
		// Imported bookmarks carry synthetic IDs with no live
		// counterpart to update.
		return false, nil
	}
	merged := Merged(item.Tags, generated)
	if Equal(merged, item.Tags) {
		return false, nil
	}
	if err := e.api.UpdateTags(ctx, item.ID, merged); err != nil {
		return false, err
	}
	return true, nil
}

// SyncAll re-fetches all bookmarks once and force-pushes the merged
// tag set for every persisted record. Updates are unconditional, even
// when the computed set is unchanged, so both sides converge after a
// prior partial update. Per-record failures are counted, never fatal.
func (e *Engine) SyncAll(ctx context.Context, collection int64) (*model.SyncSummary, error) {
	records, err := e.store.List(0)
	if err != nil {
		return nil, err
	}

	bookmarks, err := e.api.Fetch(ctx, collection, "", 0)
	if err != nil {
		return nil, err
	}

	byURL := make(map[string]model.BookmarkItem, len(bookmarks))
	byVideoID := make(map[string]model.BookmarkItem)
	for _, b := range bookmarks {
		byURL[NormalizeURL(b.Link)] = b
		if id := video.ExtractID(b.Link); id != "" {
			byVideoID[id] = b
		}
	}

	summary := &model.SyncSummary{}
	for _, rec := range records {
		item, ok := byURL[NormalizeURL(rec.URL)]
		if !ok {
			item, ok = byVideoID[rec.VideoID]
		}
		if !ok {
			summary.Skipped++
			continue
		}
		summary.Matched++

		merged := Merged(item.Tags, rec.Tags)
		if err := e.api.UpdateTags(ctx, item.ID, merged); err != nil {
			summary.Failed++
			e.logger.Printf("tag sync failed for %s: %v", rec.VideoID, err)
			continue
		}
		summary.Updated++
	}

	return summary, nil
}

// NormalizeURL reduces a URL to a comparable form: protocol, "www."
// prefix, fragment, trailing slash, and query-parameter ordering are
// all ignored.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		u, err = url.Parse("https://" + s)
		if err != nil {
			return strings.ToLower(s)
		}
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")

	path := strings.TrimSuffix(u.Path, "/")

	norm := host + path
	if q := u.Query().Encode(); q != "" {
		// Encode sorts keys, so parameter order stops mattering.
		norm += "?" + q
	}
	return norm
}
