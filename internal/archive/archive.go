// Package archive persists completed analysis runs outside the in-memory
// job store: the full result JSON goes to GCS, a compact run row goes to
// the warehouse.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-insights/internal/jobs"
	storebq "github.com/dvloznov/expense-insights/internal/store/bigquery"
	"github.com/dvloznov/expense-insights/internal/store/gcs"
)

// RunArchiver writes run artifacts. Either sink may be nil; a nil sink is
// skipped.
type RunArchiver struct {
	blobs  *gcs.Store
	runs   *storebq.Store
	bucket string
	log    zerolog.Logger
}

// NewRunArchiver creates an archiver over the given sinks.
func NewRunArchiver(blobs *gcs.Store, runs *storebq.Store, bucket string, log zerolog.Logger) *RunArchiver {
	return &RunArchiver{blobs: blobs, runs: runs, bucket: bucket, log: log}
}

// Archive persists one completed batch job. The job already succeeded, so
// archival failures are logged rather than surfaced to the queue.
func (a *RunArchiver) Archive(ctx context.Context, job *jobs.AnalyzeBatchJob) {
	if job.Result == nil {
		return
	}
	finished := time.Now().UTC()

	if a.blobs != nil && a.bucket != "" {
		data, err := json.MarshalIndent(job.Result, "", "  ")
		if err != nil {
			a.log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to encode run artifact")
		} else {
			object := fmt.Sprintf("runs/%s.json", job.JobID)
			if err := a.blobs.Save(ctx, a.bucket, object, data); err != nil {
				a.log.Error().Err(err).Str("job_id", job.JobID).Str("object", object).Msg("Failed to upload run artifact")
			}
		}
	}

	if a.runs != nil {
		started := finished
		if job.StartedAt != nil {
			started = job.StartedAt.UTC()
		}
		row := storebq.RunRow{
			RunID:       job.JobID,
			StartedTS:   started,
			FinishedTS:  finished,
			RecordCount: len(job.Records) + len(job.Transactions),
			ReportText:  job.Result.Report.SummaryText,
		}
		if err := a.runs.SaveRun(ctx, row); err != nil {
			a.log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to record run in warehouse")
		}
	}
}
