package search

import (
	"context"
	"sort"
	"strings"

	"github.com/dvloznov/expense-insights/internal/receipts"
)

// KeywordSearcher is a fallback Searcher over in-memory receipt records,
// scoring by query-term overlap against the raw text. It stands in when no
// external semantic index is configured.
type KeywordSearcher struct {
	records []receipts.Record
}

// NewKeywordSearcher indexes the given records.
func NewKeywordSearcher(records []receipts.Record) *KeywordSearcher {
	return &KeywordSearcher{records: records}
}

// Search returns the top-k records by term overlap. Records with no
// overlapping terms are omitted.
func (s *KeywordSearcher) Search(ctx context.Context, query string, k int) ([]Result, error) {
	terms := strings.Fields(strings.ToUpper(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var out []Result
	for _, rec := range s.records {
		text := strings.ToUpper(rec.RawText + " " + rec.Parsed)
		hits := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		out = append(out, Result{
			Content:  rec.RawText,
			Metadata: map[string]any{"file_id": rec.FileID},
			Score:    float64(hits) / float64(len(terms)),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

var _ Searcher = (*KeywordSearcher)(nil)
