// Package bigquery mirrors the ledger into a BigQuery dataset for ad-hoc
// analysis. The ledger stays the source of truth; every sync replaces the
// mirrored tables wholesale.
package bigquery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

const (
	transactionsTable = "transactions"
	accountsTable     = "accounts"
	categoriesTable   = "categories"
)

// Warehouse replaces the transactions, accounts and categories tables of a
// dataset with the contents of a snapshot.
type Warehouse struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	log       zerolog.Logger
	now       func() time.Time
}

// NewWarehouse creates a BigQuery client for projectID.
func NewWarehouse(ctx context.Context, projectID, datasetID string, log zerolog.Logger, opts ...option.ClientOption) (*Warehouse, error) {
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewWarehouse: creating client: %w", err)
	}
	return &Warehouse{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		log:       log,
		now:       time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (w *Warehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// EnsureDataset creates the dataset when it does not exist yet.
func (w *Warehouse) EnsureDataset(ctx context.Context) error {
	ds := w.client.DatasetInProject(w.projectID, w.datasetID)
	_, err := ds.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return domain.External("bigquery", "dataset_metadata", err)
	}
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Description: "Household ledger mirror"}); err != nil {
		return domain.External("bigquery", "create_dataset", err)
	}
	w.log.Info().Str("dataset", w.datasetID).Msg("Created warehouse dataset")
	return nil
}

// Sync replaces the mirrored tables with s.
func (w *Warehouse) Sync(ctx context.Context, s store.Snapshot) error {
	syncedAt := w.now()

	if err := replaceTable(ctx, w, transactionsTable, TransactionRow{}, TransactionRows(s, syncedAt)); err != nil {
		return err
	}
	if err := replaceTable(ctx, w, accountsTable, AccountRow{}, AccountRows(s, syncedAt)); err != nil {
		return err
	}
	if err := replaceTable(ctx, w, categoriesTable, CategoryRow{}, CategoryRows(s, syncedAt)); err != nil {
		return err
	}

	w.log.Info().
		Int64("revision", s.Revision).
		Int("transactions", len(s.Transactions)).
		Int("accounts", len(s.Accounts)).
		Msg("Warehouse synced")
	return nil
}

// replaceTable truncates and reloads one table in a single load job, so
// readers never see a half-written table.
func replaceTable[T loadable](ctx context.Context, w *Warehouse, table string, schemaOf any, rows []T) error {
	schema, err := bigquery.InferSchema(schemaOf)
	if err != nil {
		return fmt.Errorf("replaceTable %s: inferring schema: %w", table, err)
	}
	data, err := newlineJSON(rows)
	if err != nil {
		return fmt.Errorf("replaceTable %s: %w", table, err)
	}

	src := bigquery.NewReaderSource(bytes.NewReader(data))
	src.SourceFormat = bigquery.JSON
	src.Schema = schema

	loader := w.client.DatasetInProject(w.projectID, w.datasetID).Table(table).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateIfNeeded

	job, err := loader.Run(ctx)
	if err != nil {
		return domain.External("bigquery", "load_"+table, fmt.Errorf("run load job: %w", err))
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return domain.External("bigquery", "load_"+table, fmt.Errorf("wait for job: %w", err))
	}
	if err := status.Err(); err != nil {
		return domain.External("bigquery", "load_"+table, fmt.Errorf("job error: %w", err))
	}
	return nil
}
