// Package repository persists committed dashboard datasets.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
)

// DatasetInfo summarises the stored dataset of one page.
type DatasetInfo struct {
	PageID     string         `json:"pageId"`
	FileName   string         `json:"fileName"`
	Source     dataset.Source `json:"dataSource"`
	UploadedAt time.Time      `json:"uploadedAt"`
	Sheets     []string       `json:"sheets"`
	RowCount   int            `json:"rowCount"`
}

// DatasetRepository stores one dataset per dashboard page.
type DatasetRepository interface {
	// SaveDataset merges ds into the page's dataset: sheets in ds replace sheets with
	// the same name, other stored sheets are kept, upload metadata is overwritten.
	SaveDataset(ctx context.Context, ds *dataset.Dataset) error
	// GetDataset returns nil and no error when the page has no data.
	GetDataset(ctx context.Context, pageID string) (*dataset.Dataset, error)
	DeleteDataset(ctx context.Context, pageID string) error
	ListDatasets(ctx context.Context) ([]*DatasetInfo, error)
}

var (
	_ DatasetRepository = (*PostgresDatasetRepository)(nil)
	_ DatasetRepository = (*RedisDatasetRepository)(nil)
	_ DatasetRepository = (*MemoryDatasetRepository)(nil)
)

func encodeRows(rows []dataset.Row) ([]byte, error) {
	if rows == nil {
		rows = []dataset.Row{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}
	return b, nil
}

func decodeRows(b []byte) ([]dataset.Row, error) {
	var rows []dataset.Row
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}
