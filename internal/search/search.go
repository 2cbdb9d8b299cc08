package search

import (
	"dropsum/internal/model"

	"github.com/sahilm/fuzzy"
)

// Result represents a fuzzy search match against a processed record.
type Result struct {
	Record         *model.ProcessedRecord
	MatchedIndexes []int
	Score          int
}

// recordText implements fuzzy.Source over title + URL.
type recordText []*model.ProcessedRecord

func (rt recordText) String(i int) string {
	return rt[i].Title + " " + rt[i].URL
}

func (rt recordText) Len() int {
	return len(rt)
}

// FuzzySearchRecords searches processed records by title and URL
// using fuzzy matching. Returns results sorted by match score
// (best first).
func FuzzySearchRecords(records []model.ProcessedRecord, query string) []Result {
	if query == "" {
		return nil
	}

	ptrs := make(recordText, len(records))
	for i := range records {
		ptrs[i] = &records[i]
	}

	matches := fuzzy.FindFrom(query, ptrs)

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Record:         ptrs[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}
