// Package dispatch routes free-text queries to the specialized agents.
// Intent detection is decoupled from execution so one user turn can invoke
// several agents, and a partially-satisfiable query still returns whatever
// it can: missing inputs become per-intent error values, never a thrown
// failure for the whole request.
package dispatch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-insights/internal/classify"
	"github.com/dvloznov/expense-insights/internal/compliance"
	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/llm"
	"github.com/dvloznov/expense-insights/internal/metrics"
	"github.com/dvloznov/expense-insights/internal/summary"
	"github.com/dvloznov/expense-insights/internal/tax"
)

const intentSystemPrompt = "You are an intent classifier. " +
	"Respond with ONLY a JSON list of intents."

const fallbackSystemPrompt = "You are a helpful finance assistant."

// Request is one routed user turn.
type Request struct {
	// Query is the user's natural-language question.
	Query string
	// Transactions is the full list, needed by SUMMARY.
	Transactions []domain.Transaction
	// Transaction is one target transaction, needed by TAX, COMPLIANCE and
	// CATEGORY.
	Transaction *domain.Transaction
}

// SummaryResult wraps the summary agent's report or a per-intent error.
type SummaryResult struct {
	*domain.SummaryReport
	Error string `json:"error,omitempty"`
}

// TaxResult wraps the tax agent's analysis or a per-intent error.
type TaxResult struct {
	*domain.TaxAnalysis
	Error string `json:"error,omitempty"`
}

// ComplianceResult wraps the compliance assessment or a per-intent error.
type ComplianceResult struct {
	*domain.RiskAssessment
	Error string `json:"error,omitempty"`
}

// ClassificationResult wraps the resolved category or a per-intent error.
type ClassificationResult struct {
	Category domain.Category `json:"category,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Results holds one slot per agent. Slots stay nil unless the matching
// intent was detected. RawLLM is only set for the exactly-[UNKNOWN]
// conversational fallback and is distinct from per-intent errors.
type Results struct {
	Summary        *SummaryResult        `json:"summary"`
	Tax            *TaxResult            `json:"tax"`
	Compliance     *ComplianceResult     `json:"compliance"`
	Classification *ClassificationResult `json:"classification"`
	RawLLM         *string               `json:"raw_llm"`
}

// Response is the merged outcome of one routed query.
type Response struct {
	Intents []domain.Intent `json:"intents"`
	Results Results         `json:"results"`
}

// Dispatcher fans a query out to the matching agents.
type Dispatcher struct {
	completer  llm.Completer
	classifier *classify.Engine
	taxAgent   *tax.Agent
	compliance *compliance.Agent
	summarizer *summary.Agent
	log        zerolog.Logger
}

// New creates a dispatcher over the given worker agents.
func New(
	completer llm.Completer,
	classifier *classify.Engine,
	taxAgent *tax.Agent,
	complianceAgent *compliance.Agent,
	summarizer *summary.Agent,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		completer:  completer,
		classifier: classifier,
		taxAgent:   taxAgent,
		compliance: complianceAgent,
		summarizer: summarizer,
		log:        log,
	}
}

// Route classifies the query into intents and runs every matching agent.
func (d *Dispatcher) Route(ctx context.Context, req Request) Response {
	intents := d.DetectIntents(ctx, req.Query)
	for _, in := range intents {
		metrics.RoutedIntents.WithLabelValues(string(in)).Inc()
	}

	resp := Response{Intents: intents}

	for _, in := range intents {
		switch in {
		case domain.IntentSummary:
			if len(req.Transactions) == 0 {
				resp.Results.Summary = &SummaryResult{Error: "no transactions provided"}
				continue
			}
			report := d.summarizer.Summarize(ctx, req.Transactions)
			resp.Results.Summary = &SummaryResult{SummaryReport: &report}

		case domain.IntentTax:
			if req.Transaction == nil {
				resp.Results.Tax = &TaxResult{Error: "no transaction provided for tax analysis"}
				continue
			}
			analysis := d.taxAgent.Analyze(ctx, *req.Transaction)
			resp.Results.Tax = &TaxResult{TaxAnalysis: &analysis}

		case domain.IntentCompliance:
			if req.Transaction == nil {
				resp.Results.Compliance = &ComplianceResult{Error: "no transaction provided for compliance"}
				continue
			}
			assessment := d.compliance.Assess(ctx, *req.Transaction, nil)
			resp.Results.Compliance = &ComplianceResult{RiskAssessment: &assessment}

		case domain.IntentCategory:
			if req.Transaction == nil {
				resp.Results.Classification = &ClassificationResult{Error: "no transaction provided for classification"}
				continue
			}
			cat := d.classifier.Classify(ctx, *req.Transaction)
			resp.Results.Classification = &ClassificationResult{Category: cat}
		}
	}

	// Only a *purely* unknown query falls back to free-form conversation;
	// UNKNOWN mixed in with recognized intents is ignored.
	if len(intents) == 1 && intents[0] == domain.IntentUnknown {
		answer := d.fallback(ctx, req.Query)
		resp.Results.RawLLM = &answer
	}

	return resp
}

// DetectIntents asks the model for a JSON list of intents and parses it
// defensively: code fences and single quotes are tolerated, anything that
// fails to parse as a list collapses to [UNKNOWN], and unrecognized tokens
// map to UNKNOWN.
func (d *Dispatcher) DetectIntents(ctx context.Context, query string) []domain.Intent {
	user := "Classify this user question into one or more intents:\n\n" +
		"\"" + query + "\"\n\n" +
		"Possible intents:\n" +
		"- SUMMARY: Spending totals, categories, months\n" +
		"- TAX: Deductible? tax calculation? deduction rules?\n" +
		"- COMPLIANCE: suspicious? risky? fraud? compliance?\n" +
		"- CATEGORY: classify transaction? what category?\n" +
		"- UNKNOWN: general conversation\n\n" +
		"Return a JSON list of intents. No explanation, ONLY the list."

	raw, err := d.completer.Complete(ctx, llm.Request{
		System:      intentSystemPrompt,
		User:        user,
		Temperature: 0,
		MaxTokens:   100,
	})
	if err != nil {
		d.log.Warn().Err(err).Msg("intent detection call failed, treating as UNKNOWN")
		return []domain.Intent{domain.IntentUnknown}
	}
	return ParseIntentList(raw)
}

// ParseIntentList turns a raw model response into a deduplicated intent
// list. Any parse failure, and a parsed-but-empty list, yields [UNKNOWN]
// so the query still reaches the conversational fallback.
func ParseIntentList(raw string) []domain.Intent {
	cleaned := llm.CleanJSON(raw, '[', ']')
	cleaned = strings.ReplaceAll(cleaned, "'", "\"")

	var tokens []string
	if err := json.Unmarshal([]byte(cleaned), &tokens); err != nil || len(tokens) == 0 {
		return []domain.Intent{domain.IntentUnknown}
	}

	seen := map[domain.Intent]bool{}
	out := make([]domain.Intent, 0, len(tokens))
	for _, tok := range tokens {
		in := domain.ParseIntent(tok)
		if !seen[in] {
			seen[in] = true
			out = append(out, in)
		}
	}
	return out
}

func (d *Dispatcher) fallback(ctx context.Context, query string) string {
	text, err := d.completer.Complete(ctx, llm.Request{
		System:      fallbackSystemPrompt,
		User:        query,
		Temperature: 0.3,
		MaxTokens:   300,
	})
	if err != nil {
		d.log.Warn().Err(err).Msg("conversational fallback call failed")
		return "Sorry, I could not answer that right now."
	}
	return text
}
