package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/fatih/color"

	"github.com/dvloznov/expense-insights/internal/classify"
	"github.com/dvloznov/expense-insights/internal/compliance"
	"github.com/dvloznov/expense-insights/internal/config"
	"github.com/dvloznov/expense-insights/internal/dispatch"
	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/llm"
	"github.com/dvloznov/expense-insights/internal/logger"
	"github.com/dvloznov/expense-insights/internal/metrics"
	storebq "github.com/dvloznov/expense-insights/internal/store/bigquery"
	"github.com/dvloznov/expense-insights/internal/summary"
	"github.com/dvloznov/expense-insights/internal/tax"
)

func main() {
	var (
		query   = flag.String("query", "", "Question to route to the analysis agents")
		txsPath = flag.String("transactions", "", "Path to a JSON array of transactions")
		txJSON  = flag.String("transaction", "", "One transaction as inline JSON")
		since   = flag.String("since", "", "Load warehouse transactions on or after this date (YYYY-MM-DD)")
	)
	flag.Parse()

	if *query == "" && flag.NArg() > 0 {
		q := strings.Join(flag.Args(), " ")
		query = &q
	}
	if *query == "" {
		fmt.Fprintln(os.Stderr, "Usage: cli -query \"...\" [-transactions file.json] [-transaction '{...}'] [-since YYYY-MM-DD]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	ctx := context.Background()

	var completer llm.Completer
	switch cfg.Provider {
	case config.ProviderClaude:
		completer, err = llm.NewClaude(cfg.AnthropicAPIKey, cfg.Model, cfg.LLMTimeout)
	default:
		completer, err = llm.NewGemini(ctx, cfg.Model, cfg.LLMTimeout)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}
	completer = metrics.InstrumentCompleter(cfg.Provider, completer)

	classifier := classify.NewEngine(completer, log)
	taxAgent := tax.NewAgent(classifier, completer, log)
	complianceAgent := compliance.NewAgent(classifier, completer, nil, log)
	summarizer := summary.NewAgent(classifier, completer, log)
	dispatcher := dispatch.New(completer, classifier, taxAgent, complianceAgent, summarizer, log)

	req := dispatch.Request{Query: *query}

	if *txsPath != "" {
		data, err := os.ReadFile(*txsPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *txsPath).Msg("Failed to read transactions file")
		}
		if err := json.Unmarshal(data, &req.Transactions); err != nil {
			log.Fatal().Err(err).Msg("Failed to parse transactions file")
		}
	} else if *since != "" {
		if cfg.BigQueryProject == "" {
			log.Fatal().Msg("-since needs BIGQUERY_PROJECT set")
		}
		date, err := civil.ParseDate(*since)
		if err != nil {
			log.Fatal().Err(err).Str("since", *since).Msg("Failed to parse -since date")
		}
		store, err := storebq.New(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer store.Close()
		req.Transactions, err = store.ListTransactions(ctx, date)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load warehouse transactions")
		}
	}
	if *txJSON != "" {
		var tx domain.Transaction
		if err := json.Unmarshal([]byte(*txJSON), &tx); err != nil {
			log.Fatal().Err(err).Msg("Failed to parse inline transaction")
		}
		req.Transaction = &tx
	} else if len(req.Transactions) == 1 {
		req.Transaction = &req.Transactions[0]
	}

	printResponse(dispatcher.Route(ctx, req))
}

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed)
	warn    = color.New(color.FgYellow)
)

func printResponse(resp dispatch.Response) {
	names := make([]string, 0, len(resp.Intents))
	for _, in := range resp.Intents {
		names = append(names, string(in))
	}
	heading.Printf("Intents: %s\n", strings.Join(names, ", "))

	if r := resp.Results.Summary; r != nil {
		heading.Println("\nSummary")
		if r.Error != "" {
			bad.Printf("  error: %s\n", r.Error)
		} else {
			fmt.Println(indent(r.SummaryText))
			for _, mt := range r.MonthlyTotals {
				fmt.Printf("  %s  %10.2f\n", mt.Month, mt.TotalAmount)
			}
		}
	}

	if r := resp.Results.Tax; r != nil {
		heading.Println("\nTax")
		if r.Error != "" {
			bad.Printf("  error: %s\n", r.Error)
		} else {
			fmt.Printf("  category:   %s\n", r.Category)
			fmt.Printf("  deduction:  %.0f%%\n", r.DeductionPercentage*100)
			fmt.Printf("  deductible: %.2f\n", r.DeductibleAmount)
			fmt.Println(indent(r.Explanation))
		}
	}

	if r := resp.Results.Compliance; r != nil {
		heading.Println("\nCompliance")
		if r.Error != "" {
			bad.Printf("  error: %s\n", r.Error)
		} else {
			level := good
			switch r.RiskLevel {
			case domain.RiskHigh:
				level = bad
			case domain.RiskMedium:
				level = warn
			}
			level.Printf("  risk: %.1f (%s)\n", r.RiskScore, r.RiskLevel)
			for _, f := range r.Flags {
				fmt.Printf("  - %s\n", f)
			}
			fmt.Println(indent(r.Explanation))
		}
	}

	if r := resp.Results.Classification; r != nil {
		heading.Println("\nClassification")
		if r.Error != "" {
			bad.Printf("  error: %s\n", r.Error)
		} else {
			fmt.Printf("  category: %s\n", r.Category)
		}
	}

	if resp.Results.RawLLM != nil {
		heading.Println("\nAnswer")
		fmt.Println(indent(*resp.Results.RawLLM))
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
