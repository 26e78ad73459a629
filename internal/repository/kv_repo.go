package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/misttv/misttv/internal/models"
)

// kvRepo implements KVRepository using GORM.
type kvRepo struct {
	db *gorm.DB
}

// NewKVRepository creates a new KVRepository.
func NewKVRepository(db *gorm.DB) KVRepository {
	return &kvRepo{db: db}
}

// Get returns the value for key. ok is false when the key is absent.
func (r *kvRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.KVEntry
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("getting kv entry: %w", err)
	}
	return entry.Value, true, nil
}

// Set stores value under key, replacing any existing entry.
func (r *kvRepo) Set(ctx context.Context, key, value string) error {
	entry := models.KVEntry{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("setting kv entry: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (r *kvRepo) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.KVEntry{}).Error; err != nil {
		return fmt.Errorf("deleting kv entry: %w", err)
	}
	return nil
}

// ListKeys returns all keys with the given prefix.
func (r *kvRepo) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&models.KVEntry{}).
		Where("key LIKE ?", prefix+"%").
		Order("key ASC").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("listing kv keys: %w", err)
	}
	return keys, nil
}
