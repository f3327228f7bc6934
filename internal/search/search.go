// Package search defines the semantic-search contract over indexed receipts
// and the grounded question answering built on top of it. Index construction
// and embeddings live outside this system; only the consumer side is modeled
// here.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-insights/internal/llm"
)

// NoMatchesText is the fixed answer when the index returns nothing.
const NoMatchesText = "No matching expenses found."

const answerSystemPrompt = "You are a precise assistant answering questions " +
	"about a user's expenses. Use ONLY the provided context. If the context " +
	"does not contain the answer, say so."

// Result is one retrieved snippet.
type Result struct {
	Content  string
	Metadata map[string]any
	Score    float64
}

// Searcher is the external semantic-search collaborator.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, query string, k int) ([]Result, error)

func (f SearcherFunc) Search(ctx context.Context, query string, k int) ([]Result, error) {
	return f(ctx, query, k)
}

// Lazy defers searcher construction until the first query and reuses the
// handle afterwards. Construction failure is returned on every call, not
// cached away.
type Lazy struct {
	build func() (Searcher, error)

	once sync.Once
	s    Searcher
	err  error
}

// NewLazy wraps a searcher constructor.
func NewLazy(build func() (Searcher, error)) *Lazy {
	return &Lazy{build: build}
}

func (l *Lazy) Search(ctx context.Context, query string, k int) ([]Result, error) {
	l.once.Do(func() { l.s, l.err = l.build() })
	if l.err != nil {
		return nil, fmt.Errorf("search: open index: %w", l.err)
	}
	return l.s.Search(ctx, query, k)
}

// Source identifies one snippet that grounded an answer.
type Source struct {
	FileID string  `json:"file_id"`
	Score  float64 `json:"score"`
}

// Answer is a grounded response with the snippets it was built from.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Answerer answers free-text questions grounded in retrieved receipts.
type Answerer struct {
	searcher  Searcher
	completer llm.Completer
	log       zerolog.Logger
}

// NewAnswerer creates an answerer over the given searcher and model.
func NewAnswerer(searcher Searcher, completer llm.Completer, log zerolog.Logger) *Answerer {
	return &Answerer{searcher: searcher, completer: completer, log: log}
}

// Ask retrieves the top-k snippets and asks the model to answer from them.
// Retrieval failure is an error; an empty index is a fixed answer.
func (a *Answerer) Ask(ctx context.Context, question string, k int) (Answer, error) {
	if k <= 0 {
		k = 5
	}
	results, err := a.searcher.Search(ctx, question, k)
	if err != nil {
		return Answer{}, fmt.Errorf("Ask: search failed: %w", err)
	}
	if len(results) == 0 {
		return Answer{Answer: NoMatchesText, Sources: []Source{}}, nil
	}

	var b strings.Builder
	sources := make([]Source, 0, len(results))
	for i, res := range results {
		fileID := fileID(res.Metadata)
		fmt.Fprintf(&b, "Source %d (file_id=%s):\n%s\n\n", i+1, fileID, res.Content)
		sources = append(sources, Source{FileID: fileID, Score: res.Score})
	}

	user := fmt.Sprintf(
		"Context from the user's receipts:\n\n%s\nQuestion: %s\n\n"+
			"Answer using only the context above.",
		b.String(), question,
	)

	text, err := a.completer.Complete(ctx, llm.Request{
		System:      answerSystemPrompt,
		User:        user,
		Temperature: 0.2,
		MaxTokens:   400,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("Ask: model call failed: %w", err)
	}
	return Answer{Answer: text, Sources: sources}, nil
}

func fileID(meta map[string]any) string {
	if v, ok := meta["file_id"].(string); ok && v != "" {
		return v
	}
	return "unknown"
}
