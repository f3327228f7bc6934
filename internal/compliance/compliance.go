// Package compliance scores transactions for risk. A deterministic rule
// engine accumulates the score and flags; the model only writes the
// explanation, optionally grounded in retrieved policy context.
package compliance

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-insights/internal/classify"
	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/llm"
)

// Rule thresholds.
const (
	largeAmountThreshold     = 1000.0
	veryLargeAmountThreshold = 5000.0

	// structuringMinPeers is the minimum number of same-merchant,
	// similar-amount peers before the structuring flag fires.
	structuringMinPeers = 3
	// structuringAmountDelta bounds how close peer amounts must be.
	structuringAmountDelta = 5.0
)

var highRiskMerchantKeywords = []string{
	"CRYPTO", "BINANCE", "COINBASE", "GAMBLING", "CASINO", "BET", "POKER",
	"FX", "FOREX", "BINARY OPTION",
}

var cashKeywords = []string{"ATM", "CASH", "WITHDRAWAL"}

var internationalKeywords = []string{"INTERNATIONAL", "INTL", "FX FEE"}

const explainSystemPrompt = "You are an experienced bank compliance officer. " +
	"Explain suspicion level clearly, but do not claim to make legal determinations."

// Retriever fetches extra policy context (AML/KYC documents, bank rules) for
// a compliance question. It is optional; a failure degrades to empty context
// and is never surfaced to the caller.
type Retriever func(ctx context.Context, question string) (string, error)

// Agent assesses transactions for compliance risk.
type Agent struct {
	classifier *classify.Engine
	completer  llm.Completer
	retriever  Retriever
	log        zerolog.Logger
}

// NewAgent creates a compliance agent. retriever may be nil.
func NewAgent(classifier *classify.Engine, completer llm.Completer, retriever Retriever, log zerolog.Logger) *Agent {
	return &Agent{
		classifier: classifier,
		completer:  completer,
		retriever:  retriever,
		log:        log,
	}
}

// Assess scores one transaction. peers is optional cross-transaction context
// for the structuring rule; it must not contain the transaction itself (use
// AssessBatch when it does).
func (a *Agent) Assess(ctx context.Context, tx domain.Transaction, peers []domain.Transaction) domain.RiskAssessment {
	return a.assess(ctx, tx, peers, -1)
}

// AssessBatch scores every transaction, reusing the full list as shared peer
// context for each item. The self row is excluded from its own peer set by
// position, not by field equality: two distinct transactions with identical
// fields still count as each other's peers.
func (a *Agent) AssessBatch(ctx context.Context, txs []domain.Transaction) []domain.RiskAssessment {
	out := make([]domain.RiskAssessment, len(txs))
	for i := range txs {
		out[i] = a.assess(ctx, txs[i], txs, i)
	}
	return out
}

func (a *Agent) assess(ctx context.Context, tx domain.Transaction, peers []domain.Transaction, selfIdx int) domain.RiskAssessment {
	category := a.classifier.Classify(ctx, tx)

	score, flags := scoreRules(tx, category, peers, selfIdx)
	level := domain.RiskLevelFromScore(score)

	ragContext := a.retrieveContext(ctx, tx, category)

	assessment := domain.RiskAssessment{
		Category:  category,
		RiskScore: score,
		RiskLevel: level,
		Flags:     flags,
	}
	assessment.Explanation = a.explain(ctx, tx, assessment, ragContext)
	return assessment
}

// scoreRules runs the additive rule checks. The returned score is clamped to
// [0,100]; a transaction with no triggered flags is forced to 5.0 so risk is
// never literally zero.
func scoreRules(tx domain.Transaction, category domain.Category, peers []domain.Transaction, selfIdx int) (float64, []string) {
	score := 0.0
	flags := []string{}

	text := tx.SearchText()
	merchant := strings.ToUpper(tx.Merchant)

	if tx.Amount >= veryLargeAmountThreshold {
		score += 50
		flags = append(flags, "Very large transaction amount")
	} else if tx.Amount >= largeAmountThreshold {
		score += 25
		flags = append(flags, "Large transaction amount")
	}

	for _, kw := range highRiskMerchantKeywords {
		if strings.Contains(text, kw) {
			score += 40
			flags = append(flags, "High-risk merchant or activity: "+kw)
			break
		}
	}

	for _, kw := range cashKeywords {
		if strings.Contains(text, kw) {
			score += 20
			flags = append(flags, "Cash / ATM related transaction")
			break
		}
	}

	for _, kw := range internationalKeywords {
		if strings.Contains(text, kw) {
			score += 15
			flags = append(flags, "International / FX related transaction")
			break
		}
	}

	if category == domain.CategoryTransfer || category == domain.CategoryOther {
		score += 10
		flags = append(flags, "Ambiguous category: "+string(category))
	}

	if len(peers) > 0 && merchant != "" {
		similar := 0
		for i, other := range peers {
			if i == selfIdx {
				continue
			}
			if strings.Contains(strings.ToUpper(other.Merchant), merchant) &&
				math.Abs(other.Amount-tx.Amount) < structuringAmountDelta {
				similar++
			}
		}
		if similar >= structuringMinPeers {
			score += 25
			flags = append(flags, "Multiple similar transactions (possible structuring)")
		}
	}

	score = math.Max(0, math.Min(100, score))
	if len(flags) == 0 {
		score = 5.0
	}
	return score, flags
}

func (a *Agent) retrieveContext(ctx context.Context, tx domain.Transaction, category domain.Category) string {
	if a.retriever == nil {
		return ""
	}
	question := fmt.Sprintf(
		"Bank compliance rules for transaction category %s, merchant %q, amount %.2f. "+
			"Focus on AML/KYC and suspicious activity indicators.",
		category, tx.Merchant, tx.Amount,
	)
	text, err := a.retriever(ctx, question)
	if err != nil {
		a.log.Warn().Err(err).Msg("compliance retriever failed, proceeding without context")
		return ""
	}
	return text
}

func (a *Agent) explain(ctx context.Context, tx domain.Transaction, r domain.RiskAssessment, ragContext string) string {
	user := fmt.Sprintf(
		"Transaction:\n"+
			"    Description: %s\n"+
			"    Merchant: %s\n"+
			"    Amount: %.2f\n"+
			"    Category (model-assigned): %s\n\n"+
			"Risk score: %.1f (0-100)\n"+
			"Risk level: %s\n"+
			"Flags raised: %v\n\n"+
			"Additional compliance context (may be empty):\n%s\n\n"+
			"Explain in 3-5 sentences:\n"+
			"- Why this transaction has this risk level\n"+
			"- What the flags mean\n"+
			"- Whether this looks like normal customer activity or something that might need review\n"+
			"Use simple, clear language suitable for a junior analyst.",
		tx.Description, tx.Merchant, tx.Amount, r.Category,
		r.RiskScore, r.RiskLevel, r.Flags, ragContext,
	)

	text, err := a.completer.Complete(ctx, llm.Request{
		System:      explainSystemPrompt,
		User:        user,
		Temperature: 0.2,
		MaxTokens:   250,
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("compliance explanation call failed, using placeholder")
		return "Explanation unavailable."
	}
	return text
}
