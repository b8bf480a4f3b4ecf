package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
)

const (
	redisIndexKey = "datasets"

	metaFileName   = "fileName"
	metaDataSource = "dataSource"
	metaUploadedAt = "uploadedAt"
)

// RedisDatasetRepository keeps each page in two hashes: upload metadata and
// sheet name -> JSON rows. A set indexes the stored pages.
type RedisDatasetRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisDatasetRepository creates a repository whose keys start with prefix.
func NewRedisDatasetRepository(client redis.UniversalClient, prefix string) *RedisDatasetRepository {
	return &RedisDatasetRepository{client: client, prefix: prefix}
}

func (r *RedisDatasetRepository) metaKey(pageID string) string {
	return fmt.Sprintf("%sdataset:%s:meta", r.prefix, pageID)
}

func (r *RedisDatasetRepository) sheetsKey(pageID string) string {
	return fmt.Sprintf("%sdataset:%s:sheets", r.prefix, pageID)
}

func (r *RedisDatasetRepository) indexKey() string {
	return r.prefix + redisIndexKey
}

// SaveDataset writes metadata, sheets and index entry atomically.
func (r *RedisDatasetRepository) SaveDataset(ctx context.Context, ds *dataset.Dataset) error {
	sheets := make(map[string]any, len(ds.Sheets))
	for name, rows := range ds.Sheets {
		payload, err := encodeRows(rows)
		if err != nil {
			return err
		}
		sheets[name] = payload
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.metaKey(ds.PageID), map[string]any{
			metaFileName:   ds.FileName,
			metaDataSource: string(ds.Source),
			metaUploadedAt: ds.UploadedAt.UTC().Format(time.RFC3339Nano),
		})
		if len(sheets) > 0 {
			pipe.HSet(ctx, r.sheetsKey(ds.PageID), sheets)
		}
		pipe.SAdd(ctx, r.indexKey(), ds.PageID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}

// GetDataset loads a page's metadata and sheets.
func (r *RedisDatasetRepository) GetDataset(ctx context.Context, pageID string) (*dataset.Dataset, error) {
	info, err := r.readMeta(ctx, pageID)
	if err != nil || info == nil {
		return nil, err
	}

	raw, err := r.client.HGetAll(ctx, r.sheetsKey(pageID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get sheets: %w", err)
	}

	ds := &dataset.Dataset{
		PageID:     pageID,
		Sheets:     make(map[string][]dataset.Row, len(raw)),
		FileName:   info.FileName,
		Source:     info.Source,
		UploadedAt: info.UploadedAt,
	}
	for name, payload := range raw {
		rows, err := decodeRows([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		ds.Sheets[name] = rows
	}
	return ds, nil
}

// DeleteDataset removes every key of the page and its index entry.
func (r *RedisDatasetRepository) DeleteDataset(ctx context.Context, pageID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.metaKey(pageID), r.sheetsKey(pageID))
		pipe.SRem(ctx, r.indexKey(), pageID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	return nil
}

// ListDatasets returns every indexed page, most recent upload first.
func (r *RedisDatasetRepository) ListDatasets(ctx context.Context) ([]*DatasetInfo, error) {
	pages, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	infos := make([]*DatasetInfo, 0, len(pages))
	for _, pageID := range pages {
		info, err := r.readMeta(ctx, pageID)
		if err != nil {
			return nil, err
		}
		if info == nil {
			continue
		}

		raw, err := r.client.HGetAll(ctx, r.sheetsKey(pageID)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to get sheets: %w", err)
		}
		info.Sheets = make([]string, 0, len(raw))
		for name, payload := range raw {
			rows, err := decodeRows([]byte(payload))
			if err != nil {
				return nil, fmt.Errorf("sheet %q: %w", name, err)
			}
			info.Sheets = append(info.Sheets, name)
			info.RowCount += len(rows)
		}
		slices.Sort(info.Sheets)
		infos = append(infos, info)
	}

	slices.SortFunc(infos, func(a, b *DatasetInfo) int {
		return b.UploadedAt.Compare(a.UploadedAt)
	})
	return infos, nil
}

func (r *RedisDatasetRepository) readMeta(ctx context.Context, pageID string) (*DatasetInfo, error) {
	meta, err := r.client.HGetAll(ctx, r.metaKey(pageID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	if len(meta) == 0 {
		return nil, nil
	}

	uploadedAt, err := time.Parse(time.RFC3339Nano, meta[metaUploadedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid upload time for %s: %w", pageID, err)
	}
	return &DatasetInfo{
		PageID:     pageID,
		FileName:   meta[metaFileName],
		Source:     dataset.Source(meta[metaDataSource]),
		UploadedAt: uploadedAt,
	}, nil
}
