package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"journalflow/internal/errs"
	"journalflow/internal/infrastructure/persistence/sqlite/model"
	"journalflow/internal/ports"
)

// KVCache stores cache entries in the kv_store table of the main database.
// Entries with an expiry in the past read as misses and are removed lazily.
type KVCache struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.Cache = (*KVCache)(nil)

func NewKVCache(db *gorm.DB) *KVCache {
	return &KVCache{db: db, now: time.Now}
}

func (c *KVCache) Get(ctx context.Context, key string) (string, bool, error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}

	var row model.KV
	if err := c.db.WithContext(ctx).Where("cache_key = ?", trimmedKey).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "query cache by key")
	}

	if row.ExpiresAt != nil {
		expiresAt, err := time.Parse(time.RFC3339Nano, *row.ExpiresAt)
		if err == nil && !c.now().UTC().Before(expiresAt) {
			_ = c.Delete(ctx, trimmedKey)
			return "", false, nil
		}
	}
	return row.Value, true, nil
}

// Set upserts key. A non-positive ttl stores the entry without expiry.
func (c *KVCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	row := c.newRow(trimmedKey, value, ttl)
	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"expires_at": row.ExpiresAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert cache key")
	}

	return nil
}

// SetIfAbsent inserts key unless a row for it already exists, expired or not.
func (c *KVCache) SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return false, err
	}

	row := c.newRow(trimmedKey, value, ttl)
	result := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "insert cache key")
	}
	return result.RowsAffected > 0, nil
}

func (c *KVCache) newRow(key string, value string, ttl time.Duration) model.KV {
	now := c.now().UTC()
	row := model.KV{
		Key:       key,
		Value:     value,
		UpdatedAt: now.Format(time.RFC3339Nano),
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl).Format(time.RFC3339Nano)
		row.ExpiresAt = &expiresAt
	}
	return row
}

func (c *KVCache) Delete(ctx context.Context, key string) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	if err := c.db.WithContext(ctx).Where("cache_key = ?", trimmedKey).Delete(&model.KV{}).Error; err != nil {
		return errs.Wrap(err, "delete cache key")
	}
	return nil
}

func checkKey(ctx context.Context, key string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return "", errors.New("key is required")
	}
	return trimmedKey, nil
}
