// Package classify resolves transactions to one canonical category.
// Keyword rules run first; only unmatched transactions reach the model, and
// a model failure degrades to OTHER rather than propagating.
package classify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/llm"
	"github.com/dvloznov/expense-insights/internal/metrics"
)

const classifySystemPrompt = "You are a financial transaction classification assistant. " +
	"You MUST respond with exactly one category name from the allowed list."

// Engine classifies individual transactions into canonical categories.
type Engine struct {
	completer llm.Completer
	log       zerolog.Logger
	// workers bounds ClassifyBatch concurrency. Items are independent, so
	// the batch is safe to fan out.
	workers int
}

// NewEngine creates a classification engine backed by the given completer.
func NewEngine(completer llm.Completer, log zerolog.Logger) *Engine {
	return &Engine{
		completer: completer,
		log:       log,
		workers:   4,
	}
}

// Classify returns the canonical category for one transaction. Rule matches
// never invoke the model.
func (e *Engine) Classify(ctx context.Context, tx domain.Transaction) domain.Category {
	if cat, ok := MatchKeyword(tx.SearchText()); ok {
		metrics.RuleHits.Inc()
		return cat
	}
	return e.classifyWithModel(ctx, tx)
}

// ClassifyBatch classifies each transaction independently. Order of the
// result matches the input. Items that hit keyword rules cost nothing; the
// rest fan out across a bounded worker pool.
func (e *Engine) ClassifyBatch(ctx context.Context, txs []domain.Transaction) []domain.Category {
	out := make([]domain.Category, len(txs))

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	for i := range txs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = e.Classify(ctx, txs[i])
		}(i)
	}
	wg.Wait()
	return out
}

// MatchKeyword scans the ordered keyword table against the uppercased text.
// The first matching rule wins.
func MatchKeyword(text string) (domain.Category, bool) {
	for _, rule := range keywordRules {
		if strings.Contains(text, rule.Keyword) {
			return rule.Category, true
		}
	}
	return "", false
}

func (e *Engine) classifyWithModel(ctx context.Context, tx domain.Transaction) domain.Category {
	names := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		names[i] = string(c)
	}

	merchant := tx.Merchant
	if merchant == "" {
		merchant = "N/A"
	}
	user := fmt.Sprintf(
		"Description: %s\nMerchant: %s\nAmount: %.2f\n\n"+
			"Choose the single best category from this list:\n%s\n\n"+
			"Answer with ONLY the category name, nothing else.",
		strings.ToUpper(tx.Description), strings.ToUpper(merchant), tx.Amount,
		strings.Join(names, ", "),
	)

	text, err := e.completer.Complete(ctx, llm.Request{
		System:      classifySystemPrompt,
		User:        user,
		Temperature: 0,
		MaxTokens:   10,
	})
	if err != nil {
		// Model failures must not crash a batch; unknown is OTHER.
		e.log.Warn().Err(err).Str("description", tx.Description).
			Msg("classification model call failed, defaulting to OTHER")
		return domain.CategoryOther
	}
	return domain.ParseCategory(text)
}
