// Package orchestrator runs the full receipt analysis flow: raw records are
// extracted into expenses, every expense gets a tax and a compliance pass,
// and the whole set is summarized. The flow is a sequence of steps sharing
// one state, so individual stages stay testable and reorderable.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-insights/internal/compliance"
	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/receipts"
	"github.com/dvloznov/expense-insights/internal/summary"
	"github.com/dvloznov/expense-insights/internal/tax"
)

// Step is a single stage of the analysis flow.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// State is the shared state across all steps.
type State struct {
	Records      []receipts.Record
	Expenses     []receipts.Expense
	Transactions []domain.Transaction
	Tax          []domain.TaxAnalysis
	Compliance   []domain.RiskAssessment
	Report       domain.SummaryReport
}

// Result is the completed analysis of one record batch.
type Result struct {
	Expenses   []receipts.Expense      `json:"expenses"`
	Tax        []domain.TaxAnalysis    `json:"tax"`
	Compliance []domain.RiskAssessment `json:"compliance"`
	Report     domain.SummaryReport    `json:"report"`
}

// ExtractStep normalizes raw records into expenses and the transaction rows
// the downstream agents consume.
type ExtractStep struct {
	Extractor *receipts.Extractor
}

func (s *ExtractStep) Name() string { return "extract" }

func (s *ExtractStep) Execute(ctx context.Context, state *State) error {
	state.Expenses = s.Extractor.ExtractAll(ctx, state.Records)
	state.Transactions = receipts.Transactions(state.Expenses)
	return nil
}

// TaxStep analyzes every transaction for deductibility.
type TaxStep struct {
	Agent *tax.Agent
}

func (s *TaxStep) Name() string { return "tax" }

func (s *TaxStep) Execute(ctx context.Context, state *State) error {
	state.Tax = make([]domain.TaxAnalysis, len(state.Transactions))
	for i, tx := range state.Transactions {
		state.Tax[i] = s.Agent.Analyze(ctx, tx)
	}
	return nil
}

// ComplianceStep assesses every transaction with the full batch as peer
// context.
type ComplianceStep struct {
	Agent *compliance.Agent
}

func (s *ComplianceStep) Name() string { return "compliance" }

func (s *ComplianceStep) Execute(ctx context.Context, state *State) error {
	state.Compliance = s.Agent.AssessBatch(ctx, state.Transactions)
	return nil
}

// SummaryStep aggregates the batch into a report.
type SummaryStep struct {
	Agent *summary.Agent
}

func (s *SummaryStep) Name() string { return "summary" }

func (s *SummaryStep) Execute(ctx context.Context, state *State) error {
	state.Report = s.Agent.Summarize(ctx, state.Transactions)
	return nil
}

// Pipeline executes steps in order, stopping at the first failure.
type Pipeline struct {
	steps []Step
	log   zerolog.Logger
}

// NewPipeline creates a pipeline with the given steps.
func NewPipeline(log zerolog.Logger, steps ...Step) *Pipeline {
	return &Pipeline{steps: steps, log: log}
}

// Execute runs all steps sequentially over the shared state.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for _, step := range p.steps {
		p.log.Debug().Str("step", step.Name()).Msg("running analysis step")
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("analysis step %q failed: %w", step.Name(), err)
		}
	}
	return nil
}

// Orchestrator wires the standard four-step flow.
type Orchestrator struct {
	pipeline *Pipeline
}

// New builds the standard extract/tax/compliance/summary pipeline.
func New(
	extractor *receipts.Extractor,
	taxAgent *tax.Agent,
	complianceAgent *compliance.Agent,
	summarizer *summary.Agent,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		pipeline: NewPipeline(log,
			&ExtractStep{Extractor: extractor},
			&TaxStep{Agent: taxAgent},
			&ComplianceStep{Agent: complianceAgent},
			&SummaryStep{Agent: summarizer},
		),
	}
}

// Analyze runs the full flow over one batch of raw receipt records.
func (o *Orchestrator) Analyze(ctx context.Context, records []receipts.Record) (Result, error) {
	state := &State{Records: records}
	if err := o.pipeline.Execute(ctx, state); err != nil {
		return Result{}, err
	}
	return Result{
		Expenses:   state.Expenses,
		Tax:        state.Tax,
		Compliance: state.Compliance,
		Report:     state.Report,
	}, nil
}

// AnalyzeTransactions runs the tax/compliance/summary stages over rows that
// are already normalized, skipping extraction.
func (o *Orchestrator) AnalyzeTransactions(ctx context.Context, txs []domain.Transaction) (Result, error) {
	state := &State{Transactions: txs}
	steps := o.pipeline.steps
	for _, step := range steps {
		if _, ok := step.(*ExtractStep); ok {
			continue
		}
		if err := step.Execute(ctx, state); err != nil {
			return Result{}, fmt.Errorf("analysis step %q failed: %w", step.Name(), err)
		}
	}
	return Result{
		Tax:        state.Tax,
		Compliance: state.Compliance,
		Report:     state.Report,
	}, nil
}
