package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/misttv/misttv/internal/models"
)

// liveSourceRepo implements LiveSourceRepository using GORM.
type liveSourceRepo struct {
	db *gorm.DB
}

// NewLiveSourceRepository creates a new LiveSourceRepository.
func NewLiveSourceRepository(db *gorm.DB) LiveSourceRepository {
	return &liveSourceRepo{db: db}
}

// Create creates a new live source.
func (r *liveSourceRepo) Create(ctx context.Context, source *models.LiveSource) error {
	if err := r.db.WithContext(ctx).Create(source).Error; err != nil {
		return fmt.Errorf("creating live source: %w", err)
	}
	return nil
}

// GetByKey retrieves a live source by its unique key.
// Returns nil when no source with that key exists.
func (r *liveSourceRepo) GetByKey(ctx context.Context, key string) (*models.LiveSource, error) {
	var source models.LiveSource
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&source).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting live source by key: %w", err)
	}
	return &source, nil
}

// GetAll retrieves all live sources.
func (r *liveSourceRepo) GetAll(ctx context.Context) ([]*models.LiveSource, error) {
	var sources []*models.LiveSource
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("getting all live sources: %w", err)
	}
	return sources, nil
}

// GetEnabled retrieves all live sources not marked disabled.
func (r *liveSourceRepo) GetEnabled(ctx context.Context) ([]*models.LiveSource, error) {
	var sources []*models.LiveSource
	err := r.db.WithContext(ctx).
		Where("disabled IS NULL OR disabled = ?", false).
		Order("key ASC").
		Find(&sources).Error
	if err != nil {
		return nil, fmt.Errorf("getting enabled live sources: %w", err)
	}
	return sources, nil
}

// Update updates an existing live source.
func (r *liveSourceRepo) Update(ctx context.Context, source *models.LiveSource) error {
	if err := r.db.WithContext(ctx).Save(source).Error; err != nil {
		return fmt.Errorf("updating live source: %w", err)
	}
	return nil
}

// Upsert creates the source or, when a row with the same key exists, carries
// the existing ID over and updates it in place.
func (r *liveSourceRepo) Upsert(ctx context.Context, source *models.LiveSource) error {
	existing, err := r.GetByKey(ctx, source.Key)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.Create(ctx, source)
	}
	source.ID = existing.ID
	source.CreatedAt = existing.CreatedAt
	return r.Update(ctx, source)
}

// DeleteByKey hard-deletes a live source by key so the unique constraint
// doesn't conflict when re-creating a source under the same key.
func (r *liveSourceRepo) DeleteByKey(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Unscoped().Where("key = ?", key).Delete(&models.LiveSource{}).Error; err != nil {
		return fmt.Errorf("deleting live source: %w", err)
	}
	return nil
}
