// Package bigquery reads receipt records and normalized transactions from
// the warehouse and writes completed analysis runs back.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/receipts"
)

// ReceiptRow mirrors the receipts table.
type ReceiptRow struct {
	FileID   string                 `bigquery:"file_id"`
	RawText  string                 `bigquery:"raw_text"`
	Parsed   bigquery.NullString    `bigquery:"parsed"`
	GCSURI   bigquery.NullString    `bigquery:"gcs_uri"`
	UploadTS time.Time              `bigquery:"upload_ts"`
	Metadata bigquery.NullJSON      `bigquery:"metadata"`
	Deleted  bigquery.NullTimestamp `bigquery:"deleted_ts"`
}

// TransactionRow mirrors the transactions table.
type TransactionRow struct {
	TransactionID   string              `bigquery:"transaction_id"`
	TransactionDate civil.Date          `bigquery:"transaction_date"`
	Description     string              `bigquery:"description"`
	Merchant        bigquery.NullString `bigquery:"merchant"`
	Amount          float64             `bigquery:"amount"`
	Category        bigquery.NullString `bigquery:"category"`
	CreatedTS       time.Time           `bigquery:"created_ts"`
}

// Store wraps one BigQuery client scoped to a dataset.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// New creates a warehouse store.
func New(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery.New: creating client: %w", err)
	}
	return &Store{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// ListReceipts retrieves receipt records, newest first. limit <= 0 means no
// limit.
func (s *Store) ListReceipts(ctx context.Context, limit int) ([]receipts.Record, error) {
	query := fmt.Sprintf(`
		SELECT
			file_id,
			raw_text,
			parsed,
			gcs_uri,
			upload_ts,
			metadata,
			deleted_ts
		FROM `+"`%s.%s.receipts`"+`
		WHERE deleted_ts IS NULL
		ORDER BY upload_ts DESC
	`, s.projectID, s.datasetID)
	if limit > 0 {
		query += fmt.Sprintf("\t\tLIMIT %d\n", limit)
	}

	it, err := s.client.Query(query).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListReceipts: reading query: %w", err)
	}

	var out []receipts.Record
	for {
		var row ReceiptRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListReceipts: iterating rows: %w", err)
		}
		out = append(out, receipts.Record{
			FileID:  row.FileID,
			RawText: row.RawText,
			Parsed:  row.Parsed.StringVal,
			GCSURI:  row.GCSURI.StringVal,
		})
	}
	return out, nil
}

// ListTransactions retrieves transactions on or after since. A zero since
// returns everything.
func (s *Store) ListTransactions(ctx context.Context, since civil.Date) ([]domain.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT
			transaction_id,
			transaction_date,
			description,
			merchant,
			amount,
			category,
			created_ts
		FROM `+"`%s.%s.transactions`"+`
		WHERE transaction_date >= @since
		ORDER BY transaction_date ASC
	`, s.projectID, s.datasetID)

	q := s.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "since", Value: since},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: reading query: %w", err)
	}

	var out []domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iterating rows: %w", err)
		}
		out = append(out, decodeTransaction(row))
	}
	return out, nil
}

func decodeTransaction(row TransactionRow) domain.Transaction {
	tx := domain.Transaction{
		Description: row.Description,
		Merchant:    row.Merchant.StringVal,
		Amount:      row.Amount,
		Date:        row.TransactionDate.String(),
	}
	if row.Category.Valid {
		tx.Category = domain.ParseCategory(row.Category.StringVal)
	}
	return tx
}

// RunRow records one completed analysis run.
type RunRow struct {
	RunID       string    `bigquery:"run_id"`
	StartedTS   time.Time `bigquery:"started_ts"`
	FinishedTS  time.Time `bigquery:"finished_ts"`
	RecordCount int       `bigquery:"record_count"`
	ReportText  string    `bigquery:"report_text"`
}

// SaveRun inserts a completed analysis run.
func (s *Store) SaveRun(ctx context.Context, run RunRow) error {
	inserter := s.client.Dataset(s.datasetID).Table("analysis_runs").Inserter()
	if err := inserter.Put(ctx, &run); err != nil {
		return fmt.Errorf("SaveRun: inserting row: %w", err)
	}
	return nil
}
