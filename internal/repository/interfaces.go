// Package repository provides data access for misttv entities using GORM.
package repository

import (
	"context"

	"github.com/misttv/misttv/internal/models"
)

// KVRepository is the durable key-value store used by the live pipeline for
// raw playlist bodies, channel-edit overlays, and the admin configuration.
type KVRepository interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any existing entry.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// ListKeys returns all keys with the given prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// LiveSourceRepository persists configured live playlist feeds.
type LiveSourceRepository interface {
	Create(ctx context.Context, source *models.LiveSource) error
	GetByKey(ctx context.Context, key string) (*models.LiveSource, error)
	GetAll(ctx context.Context) ([]*models.LiveSource, error)
	GetEnabled(ctx context.Context) ([]*models.LiveSource, error)
	Update(ctx context.Context, source *models.LiveSource) error
	Upsert(ctx context.Context, source *models.LiveSource) error
	DeleteByKey(ctx context.Context, key string) error
}
