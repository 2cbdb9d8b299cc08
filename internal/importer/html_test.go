package importer

import (
	"strings"
	"testing"
	"time"
)

const sampleExport = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3>Videos</H3>
    <DL><p>
        <DT><A HREF="https://www.youtube.com/watch?v=dQw4w9WgXcQ" ADD_DATE="1700000000" TAGS="music, classic">Never Gonna Give You Up</A>
        <DT><A HREF="https://example.com/article">Some Article</A>
    </DL><p>
    <DT><A HREF="https://youtu.be/abcDEF12345"></A>
</DL><p>
`

func TestParseHTMLBookmarks(t *testing.T) {
	items, err := ParseHTMLBookmarks(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "Never Gonna Give You Up" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.Link != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("unexpected link %q", first.Link)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "music" || first.Tags[1] != "classic" {
		t.Errorf("unexpected tags %v", first.Tags)
	}
	if want := time.Unix(1700000000, 0); !first.Created.Equal(want) {
		t.Errorf("expected created %v, got %v", want, first.Created)
	}
	if first.ID >= 0 {
		t.Errorf("expected synthetic negative ID, got %d", first.ID)
	}

	// Untitled bookmarks fall back to the URL.
	if items[2].Title != "https://youtu.be/abcDEF12345" {
		t.Errorf("expected URL fallback title, got %q", items[2].Title)
	}
}

func TestParseHTMLBookmarks_StableSyntheticIDs(t *testing.T) {
	items1, err := ParseHTMLBookmarks(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	items2, err := ParseHTMLBookmarks(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if items1[0].ID != items2[0].ID {
		t.Error("synthetic IDs must be stable across parses")
	}
	if items1[0].ID == items1[1].ID {
		t.Error("distinct URLs must yield distinct IDs")
	}
}

func TestParseHTMLBookmarks_SkipsAnchorsWithoutHref(t *testing.T) {
	items, err := ParseHTMLBookmarks(strings.NewReader(`<DL><DT><A>no link</A></DL>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected 0 items, got %d", len(items))
	}
}
