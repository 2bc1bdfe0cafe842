// Package bigquery lands parsed transactions in a BigQuery table. It lives
// with the callers of the import pipeline: the core emits transactions and
// never touches storage itself.
package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dhruvpathak/finimport/internal/domain"
)

// Config identifies the destination table.
type Config struct {
	ProjectID string
	DatasetID string
	Table     string
}

// Sink writes transactions to one configured table.
type Sink struct {
	cfg Config
}

// New creates a sink for the given destination.
func New(cfg Config) *Sink {
	if cfg.Table == "" {
		cfg.Table = "transactions"
	}
	return &Sink{cfg: cfg}
}

// TransactionRow is the BigQuery schema for one imported transaction. The
// content-hash transaction_id makes re-imports idempotent when the table is
// deduplicated on it.
type TransactionRow struct {
	TransactionID   string     `bigquery:"transaction_id"`
	ImportID        string     `bigquery:"import_id"`
	TransactionDate civil.Date `bigquery:"transaction_date"`

	Description string   `bigquery:"description"`
	Amount      *big.Rat `bigquery:"amount"` // NUMERIC, always positive
	Type        string   `bigquery:"type"`   // income / expense / transfer

	Category    string              `bigquery:"category"`
	Subcategory bigquery.NullString `bigquery:"subcategory"`
	Merchant    bigquery.NullString `bigquery:"merchant"`

	Source    string    `bigquery:"source"` // classification source: ai / rules
	CreatedTS time.Time `bigquery:"created_ts"`
}

func rowFromTransaction(importID string, tx domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		TransactionID:   tx.ID,
		ImportID:        importID,
		TransactionDate: civil.DateOf(tx.Date),
		Description:     tx.Description,
		Amount:          new(big.Rat).SetFloat64(tx.Amount),
		Type:            string(tx.Type),
		Category:        tx.Category,
		Source:          tx.Metadata.Source,
		CreatedTS:       time.Now(),
	}
	if tx.Subcategory != "" {
		row.Subcategory = bigquery.NullString{StringVal: tx.Subcategory, Valid: true}
	}
	if tx.Merchant != "" {
		row.Merchant = bigquery.NullString{StringVal: tx.Merchant, Valid: true}
	}
	return row
}

// Insert writes a batch of transactions, creating a client for the call.
func (s *Sink) Insert(ctx context.Context, importID string, txs []domain.Transaction) error {
	client, err := bigquery.NewClient(ctx, s.cfg.ProjectID)
	if err != nil {
		return fmt.Errorf("Insert: bigquery client: %w", err)
	}
	defer client.Close()

	return s.InsertWithClient(ctx, client, importID, txs)
}

// InsertWithClient writes a batch of transactions using the provided client.
func (s *Sink) InsertWithClient(ctx context.Context, client *bigquery.Client, importID string, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, rowFromTransaction(importID, tx))
	}

	inserter := client.DatasetInProject(s.cfg.ProjectID, s.cfg.DatasetID).Table(s.cfg.Table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertWithClient: inserting rows: %w", err)
	}
	return nil
}

// QueryByDateRange reads back transactions within [start, end] inclusive,
// newest first.
func (s *Sink) QueryByDateRange(ctx context.Context, start, end time.Time) ([]*TransactionRow, error) {
	client, err := bigquery.NewClient(ctx, s.cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("QueryByDateRange: bigquery client: %w", err)
	}
	defer client.Close()

	q := client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE transaction_date BETWEEN @start_date AND @end_date
		ORDER BY transaction_date DESC
	`, s.cfg.DatasetID, s.cfg.Table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: civil.DateOf(start)},
		{Name: "end_date", Value: civil.DateOf(end)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryByDateRange: running query: %w", err)
	}

	var rows []*TransactionRow
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryByDateRange: reading row: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
