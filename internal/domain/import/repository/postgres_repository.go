package repository

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repository to allow mocking in tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PgxPool = (*pgxpool.Pool)(nil)

const (
	upsertUploadQuery = `
		INSERT INTO page_uploads (page_id, file_name, data_source, uploaded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (page_id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			data_source = EXCLUDED.data_source,
			uploaded_at = EXCLUDED.uploaded_at
	`

	upsertSheetQuery = `
		INSERT INTO page_sheets (page_id, sheet_name, rows, row_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (page_id, sheet_name) DO UPDATE SET
			rows = EXCLUDED.rows,
			row_count = EXCLUDED.row_count
	`

	getUploadQuery = `
		SELECT file_name, data_source, uploaded_at
		FROM page_uploads
		WHERE page_id = $1
	`

	getSheetsQuery = `
		SELECT sheet_name, rows
		FROM page_sheets
		WHERE page_id = $1
		ORDER BY sheet_name
	`

	deleteUploadQuery = `DELETE FROM page_uploads WHERE page_id = $1`

	listUploadsQuery = `
		SELECT u.page_id, u.file_name, u.data_source, u.uploaded_at,
		       array_remove(array_agg(s.sheet_name ORDER BY s.sheet_name), NULL),
		       COALESCE(SUM(s.row_count), 0)
		FROM page_uploads u
		LEFT JOIN page_sheets s ON s.page_id = u.page_id
		GROUP BY u.page_id, u.file_name, u.data_source, u.uploaded_at
		ORDER BY u.uploaded_at DESC
	`
)

// PostgresDatasetRepository stores datasets as one JSONB document per sheet.
type PostgresDatasetRepository struct {
	pgpool PgxPool
}

// NewPostgresDatasetRepository creates a new PostgreSQL-backed dataset repository
func NewPostgresDatasetRepository(pgpool PgxPool) *PostgresDatasetRepository {
	return &PostgresDatasetRepository{pgpool: pgpool}
}

// SaveDataset upserts the upload metadata and every sheet of ds in one transaction.
func (r *PostgresDatasetRepository) SaveDataset(ctx context.Context, ds *dataset.Dataset) error {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := saveDataset(ctx, tx, ds); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}
	return nil
}

func saveDataset(ctx context.Context, tx pgx.Tx, ds *dataset.Dataset) error {
	if _, err := tx.Exec(ctx, upsertUploadQuery, ds.PageID, ds.FileName, string(ds.Source), ds.UploadedAt); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}

	for _, name := range slices.Sorted(maps.Keys(ds.Sheets)) {
		rows := ds.Sheets[name]
		payload, err := encodeRows(rows)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, upsertSheetQuery, ds.PageID, name, payload, len(rows)); err != nil {
			return fmt.Errorf("failed to save sheet %q: %w", name, err)
		}
	}
	return nil
}

// GetDataset loads every stored sheet of a page.
func (r *PostgresDatasetRepository) GetDataset(ctx context.Context, pageID string) (*dataset.Dataset, error) {
	ds := &dataset.Dataset{PageID: pageID, Sheets: make(map[string][]dataset.Row)}

	var source string
	err := r.pgpool.QueryRow(ctx, getUploadQuery, pageID).Scan(&ds.FileName, &source, &ds.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	ds.Source = dataset.Source(source)

	rows, err := r.pgpool.Query(ctx, getSheetsQuery, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sheets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name    string
			payload []byte
		)
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan sheet: %w", err)
		}
		decoded, err := decodeRows(payload)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		ds.Sheets[name] = decoded
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sheets: %w", err)
	}
	return ds, nil
}

// DeleteDataset removes a page's upload; its sheets go with it through the foreign key.
func (r *PostgresDatasetRepository) DeleteDataset(ctx context.Context, pageID string) error {
	if _, err := r.pgpool.Exec(ctx, deleteUploadQuery, pageID); err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	return nil
}

// ListDatasets returns every stored page, most recent upload first.
func (r *PostgresDatasetRepository) ListDatasets(ctx context.Context) ([]*DatasetInfo, error) {
	rows, err := r.pgpool.Query(ctx, listUploadsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var infos []*DatasetInfo
	for rows.Next() {
		var (
			info     DatasetInfo
			source   string
			rowCount int64
		)
		if err := rows.Scan(&info.PageID, &info.FileName, &source, &info.UploadedAt, &info.Sheets, &rowCount); err != nil {
			return nil, fmt.Errorf("failed to scan dataset info: %w", err)
		}
		info.Source = dataset.Source(source)
		info.RowCount = int(rowCount)
		infos = append(infos, &info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate datasets: %w", err)
	}
	return infos, nil
}
