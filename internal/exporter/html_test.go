package exporter

import (
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/golden"

	"dropsum/internal/model"
)

func TestExportHTML(t *testing.T) {
	records := []model.ProcessedRecord{
		{
			VideoID:     "dQw4w9WgXcQ",
			Title:       "Tools & Tricks",
			URL:         "https://youtu.be/dQw4w9WgXcQ",
			OutputPath:  "/tmp/summaries/dQw4w9WgXcQ.md",
			Tags:        []string{"music"},
			ProcessedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			VideoID: "abcDEF12345",
			URL:     "https://youtu.be/abcDEF12345",
		},
	}

	out := ExportHTML(records)

	if !strings.Contains(out, "<h1>Video Summaries (2)</h1>") {
		t.Error("missing header with count")
	}
	if !strings.Contains(out, "Tools &amp; Tricks") {
		t.Error("title not escaped")
	}
	if !strings.Contains(out, `href="https://youtu.be/dQw4w9WgXcQ"`) {
		t.Error("missing source link")
	}
	if !strings.Contains(out, "file:///tmp/summaries/dQw4w9WgXcQ.md") {
		t.Error("missing artifact link")
	}
	// Untitled records fall back to the video ID.
	if !strings.Contains(out, ">abcDEF12345</a>") {
		t.Error("missing video-ID fallback title")
	}
	if !strings.Contains(out, "2024-03-01") {
		t.Error("missing processed date")
	}
}

func TestExportHTML_Snapshot(t *testing.T) {
	records := []model.ProcessedRecord{
		{
			VideoID:     "dQw4w9WgXcQ",
			Title:       "Tools & Tricks",
			URL:         "https://youtu.be/dQw4w9WgXcQ",
			OutputPath:  "/tmp/summaries/dQw4w9WgXcQ.md",
			Tags:        []string{"music"},
			ProcessedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			VideoID: "abcDEF12345",
			URL:     "https://youtu.be/abcDEF12345",
		},
	}

	golden.Assert(t, ExportHTML(records), "export_index.golden")
}

func TestExportHTML_Empty(t *testing.T) {
	out := ExportHTML(nil)
	if !strings.Contains(out, "<h1>Video Summaries (0)</h1>") {
		t.Error("expected empty index")
	}
}
