package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dvloznov/expense-insights/internal/llm"
)

var (
	// ModelCalls counts text-generation calls by caller and outcome.
	ModelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_model_calls_total",
		Help: "Text-generation calls by caller and outcome.",
	}, []string{"caller", "outcome"})

	// RoutedIntents counts intents the dispatcher detected.
	RoutedIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_routed_intents_total",
		Help: "Intents detected by the dispatcher.",
	}, []string{"intent"})

	// RuleHits counts keyword-rule classifications that skipped the model.
	RuleHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "expense_classification_rule_hits_total",
		Help: "Classifications resolved by keyword rules without a model call.",
	})
)

type instrumented struct {
	caller string
	inner  llm.Completer
}

// InstrumentCompleter wraps a Completer so every call is counted under the
// given caller label.
func InstrumentCompleter(caller string, inner llm.Completer) llm.Completer {
	return &instrumented{caller: caller, inner: inner}
}

func (i *instrumented) Complete(ctx context.Context, req llm.Request) (string, error) {
	text, err := i.inner.Complete(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ModelCalls.WithLabelValues(i.caller, outcome).Inc()
	return text, err
}
