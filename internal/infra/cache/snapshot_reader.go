package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"cartengine/internal/domain/model"
	"cartengine/internal/repository"
)

const opProductSnapshot = "product_snapshot"

// SnapshotReader は商品スナップショットを Redis に載せる。
// 表示専用。在庫の判定は必ずDBで行う。
type SnapshotReader struct {
	next   repository.ProductSnapshotReader
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewSnapshotReader(next repository.ProductSnapshotReader, c Cache, ttl time.Duration, logger *slog.Logger) *SnapshotReader {
	return &SnapshotReader{next: next, cache: c, ttl: ttl, logger: logger}
}

func (r *SnapshotReader) Snapshot(ctx context.Context, id int64) (model.ProductSnapshot, error) {
	key := r.cache.GenerateKey(opProductSnapshot, strconv.FormatInt(id, 10))

	// キャッシュ障害は読み飛ばしてDBへ
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("product cache get failed", "product_id", id, "error", err)
	}
	if raw != "" {
		var s model.ProductSnapshot
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return s, nil
		}
		r.logger.Warn("product cache entry corrupt", "product_id", id)
	}

	s, err := r.next.Snapshot(ctx, id)
	if err != nil {
		return model.ProductSnapshot{}, err
	}

	data, err := json.Marshal(s)
	if err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			r.logger.Warn("product cache set failed", "product_id", id, "error", err)
		}
	}
	return s, nil
}
