package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
)

// MemoryDatasetRepository keeps datasets in process memory. It backs local
// development and tests.
type MemoryDatasetRepository struct {
	mu       sync.RWMutex
	datasets map[string]*dataset.Dataset
}

func NewMemoryDatasetRepository() *MemoryDatasetRepository {
	return &MemoryDatasetRepository{datasets: make(map[string]*dataset.Dataset)}
}

func (r *MemoryDatasetRepository) SaveDataset(_ context.Context, ds *dataset.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.datasets[ds.PageID]
	if !ok {
		stored = &dataset.Dataset{PageID: ds.PageID}
		r.datasets[ds.PageID] = stored
	}
	stored.Merge(ds)
	return nil
}

func (r *MemoryDatasetRepository) GetDataset(_ context.Context, pageID string) (*dataset.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.datasets[pageID]
	if !ok {
		return nil, nil
	}
	out := *stored
	out.Sheets = make(map[string][]dataset.Row, len(stored.Sheets))
	for name, rows := range stored.Sheets {
		out.Sheets[name] = rows
	}
	return &out, nil
}

func (r *MemoryDatasetRepository) DeleteDataset(_ context.Context, pageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.datasets, pageID)
	return nil
}

func (r *MemoryDatasetRepository) ListDatasets(_ context.Context) ([]*DatasetInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]*DatasetInfo, 0, len(r.datasets))
	for _, ds := range r.datasets {
		names := ds.SheetNames()
		slices.Sort(names)
		infos = append(infos, &DatasetInfo{
			PageID:     ds.PageID,
			FileName:   ds.FileName,
			Source:     ds.Source,
			UploadedAt: ds.UploadedAt,
			Sheets:     names,
			RowCount:   ds.RowCount(),
		})
	}
	slices.SortFunc(infos, func(a, b *DatasetInfo) int {
		return b.UploadedAt.Compare(a.UploadedAt)
	})
	return infos, nil
}
