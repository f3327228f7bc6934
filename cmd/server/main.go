package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-insights/internal/api"
	"github.com/dvloznov/expense-insights/internal/api/handlers"
	"github.com/dvloznov/expense-insights/internal/archive"
	"github.com/dvloznov/expense-insights/internal/classify"
	"github.com/dvloznov/expense-insights/internal/compliance"
	"github.com/dvloznov/expense-insights/internal/config"
	"github.com/dvloznov/expense-insights/internal/dispatch"
	"github.com/dvloznov/expense-insights/internal/jobs"
	"github.com/dvloznov/expense-insights/internal/jobs/inmemory"
	"github.com/dvloznov/expense-insights/internal/llm"
	"github.com/dvloznov/expense-insights/internal/logger"
	"github.com/dvloznov/expense-insights/internal/metrics"
	"github.com/dvloznov/expense-insights/internal/orchestrator"
	"github.com/dvloznov/expense-insights/internal/receipts"
	"github.com/dvloznov/expense-insights/internal/search"
	storebq "github.com/dvloznov/expense-insights/internal/store/bigquery"
	"github.com/dvloznov/expense-insights/internal/store/gcs"
	"github.com/dvloznov/expense-insights/internal/summary"
	"github.com/dvloznov/expense-insights/internal/tax"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}
	completer = metrics.InstrumentCompleter(cfg.Provider, completer)

	classifier := classify.NewEngine(completer, log)
	taxAgent := tax.NewAgent(classifier, completer, log)
	complianceAgent := compliance.NewAgent(classifier, completer, nil, log)
	summarizer := summary.NewAgent(classifier, completer, log)
	dispatcher := dispatch.New(completer, classifier, taxAgent, complianceAgent, summarizer, log)

	// Job infrastructure for asynchronous batch runs.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueSize, jobStore)
	extractor := receipts.NewExtractor(classifier, log)
	flow := orchestrator.New(extractor, taxAgent, complianceAgent, summarizer, log)

	handler := jobs.Handler(flow)
	if cfg.GCSBucket != "" || cfg.BigQueryProject != "" {
		var (
			blobs *gcs.Store
			runs  *storebq.Store
		)
		if cfg.GCSBucket != "" {
			blobs, err = gcs.New(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create GCS client")
			}
			defer blobs.Close()
		}
		if cfg.BigQueryProject != "" {
			runs, err = storebq.New(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create BigQuery client")
			}
			defer runs.Close()
		}
		archiver := archive.NewRunArchiver(blobs, runs, cfg.GCSBucket, log)
		handler = jobs.Handler(flow, archiver.Archive)
	}
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	deps := api.Deps{
		Analysis: handlers.NewAnalysisHandler(dispatcher, classifier, taxAgent, complianceAgent, summarizer, log),
		Jobs:     handlers.NewJobsHandler(jobQueue, jobStore, log),
		Log:      log,
	}

	// Grounded Q&A needs receipt records. Without a warehouse there is no
	// corpus, so the route stays unmounted.
	if cfg.BigQueryProject != "" {
		searcher := search.NewLazy(func() (search.Searcher, error) {
			store, err := storebq.New(context.Background(), cfg.BigQueryProject, cfg.BigQueryDataset)
			if err != nil {
				return nil, err
			}
			defer store.Close()
			records, err := store.ListReceipts(context.Background(), 0)
			if err != nil {
				return nil, err
			}
			if err := backfillRawText(context.Background(), records, log); err != nil {
				return nil, err
			}
			return search.NewKeywordSearcher(records), nil
		})
		deps.Ask = handlers.NewAskHandler(search.NewAnswerer(searcher, completer, log), log)
	} else {
		log.Warn().Msg("No BigQuery project configured - /api/ask is disabled")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("provider", cfg.Provider).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server stopped with error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Job queue shutdown failed")
	}
}

// backfillRawText fetches receipt text from GCS for rows where the
// warehouse holds only a document URI. Individual fetch failures leave the
// row out of the index instead of failing the build.
func backfillRawText(ctx context.Context, records []receipts.Record, log zerolog.Logger) error {
	var missing []int
	for i, rec := range records {
		if rec.RawText == "" && rec.GCSURI != "" {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	blobs, err := gcs.New(ctx)
	if err != nil {
		return err
	}
	defer blobs.Close()

	for _, i := range missing {
		text, err := blobs.FetchText(ctx, records[i].GCSURI)
		if err != nil {
			log.Warn().Err(err).Str("file_id", records[i].FileID).Msg("Failed to fetch receipt text")
			continue
		}
		records[i].RawText = text
	}
	return nil
}

func newCompleter(ctx context.Context, cfg config.Config) (llm.Completer, error) {
	switch cfg.Provider {
	case config.ProviderClaude:
		return llm.NewClaude(cfg.AnthropicAPIKey, cfg.Model, cfg.LLMTimeout)
	case config.ProviderGemini:
		return llm.NewGemini(ctx, cfg.Model, cfg.LLMTimeout)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
