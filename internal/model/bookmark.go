package model

import "time"

// BookmarkItem is one record from the source bookmark service.
// It is an immutable snapshot fetched per run; the pipeline never
// mutates it locally, tag changes go back through the API.
type BookmarkItem struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	Link    string    `json:"link"`
	Tags    []string  `json:"tags"`
	Created time.Time `json:"created"`
	Type    string    `json:"type"`
	Domain  string    `json:"domain"`
}
