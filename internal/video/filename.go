package video

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"dropsum/internal/model"
)

const maxSlugLen = 80

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename generates the stable output-file key for an item.
// Preference order: canonical video ID, sanitized hostname+path,
// sanitized title slug, timestamp. The tiers matter: they are what
// keeps output keys collision-resistant when no ID is available.
func Filename(item model.BookmarkItem) string {
	if id := ExtractID(item.Link); id != "" {
		return id
	}

	if key := urlKey(item.Link); key != "" {
		return key
	}

	if slug := Sanitize(item.Title); slug != "" {
		return slug
	}

	return time.Now().UTC().Format("20060102-150405")
}

// Sanitize reduces a string to a filesystem-safe slug, capped
// at a bounded length to stay clear of filesystem limits.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = unsafeChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")
	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "-.")
	}
	return s
}

func urlKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return Sanitize(u.Host + u.Path)
}
