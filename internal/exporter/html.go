package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dropsum/internal/model"
)

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/summaries-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("summaries-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// ExportHTML renders an HTML index of processed summaries: one entry
// per record, linking both the source video and the local artifact.
func ExportHTML(records []model.ProcessedRecord) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString("<html><head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<title>Video Summaries</title>\n")
	b.WriteString("</head><body>\n")
	fmt.Fprintf(&b, "<h1>Video Summaries (%d)</h1>\n", len(records))
	b.WriteString("<ul>\n")

	for _, rec := range records {
		title := rec.Title
		if title == "" {
			title = rec.VideoID
		}
		fmt.Fprintf(&b, "    <li><a href=\"%s\">%s</a>",
			html.EscapeString(rec.URL), html.EscapeString(title))
		if rec.OutputPath != "" {
			fmt.Fprintf(&b, " | <a href=\"file://%s\">summary</a>", html.EscapeString(rec.OutputPath))
		}
		if len(rec.Tags) > 0 {
			fmt.Fprintf(&b, " <small>[%s]</small>", html.EscapeString(strings.Join(rec.Tags, ", ")))
		}
		if !rec.ProcessedAt.IsZero() {
			fmt.Fprintf(&b, " <small>%s</small>", rec.ProcessedAt.Format("2006-01-02"))
		}
		b.WriteString("</li>\n")
	}

	b.WriteString("</ul>\n")
	b.WriteString("</body></html>\n")

	return b.String()
}
