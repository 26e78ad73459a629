// Package service implements the application's business logic on top of the
// repositories, the channel cache, and the refresher.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/misttv/misttv/internal/live"
	"github.com/misttv/misttv/internal/models"
	"github.com/misttv/misttv/internal/repository"
)

// LiveService manages live sources and their channel data.
type LiveService struct {
	sources   repository.LiveSourceRepository
	kv        repository.KVRepository
	cache     *live.Cache
	refresher *live.Refresher
	logger    *slog.Logger
}

// NewLiveService creates a live service.
func NewLiveService(sources repository.LiveSourceRepository, kv repository.KVRepository, cache *live.Cache, refresher *live.Refresher, logger *slog.Logger) *LiveService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveService{
		sources:   sources,
		kv:        kv,
		cache:     cache,
		refresher: refresher,
		logger:    logger,
	}
}

// ListSources returns all configured live sources.
func (s *LiveService) ListSources(ctx context.Context) ([]*models.LiveSource, error) {
	return s.sources.GetAll(ctx)
}

// GetSource returns the live source with the given key.
func (s *LiveService) GetSource(ctx context.Context, key string) (*models.LiveSource, error) {
	src, err := s.sources.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotFound, key)
	}
	return src, nil
}

// CreateSource validates and persists a new live source, then refreshes it so
// channels are available immediately. The refresh is best-effort: a dead feed
// does not reject the creation.
func (s *LiveService) CreateSource(ctx context.Context, src *models.LiveSource) error {
	if err := src.Validate(); err != nil {
		return err
	}
	existing, err := s.sources.GetByKey(ctx, src.Key)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %q", ErrSourceExists, src.Key)
	}
	if src.From == "" {
		src.From = models.ProvenanceCustom
	}
	if err := s.sources.Create(ctx, src); err != nil {
		return err
	}

	if !src.IsDisabled() {
		if _, err := s.refreshAndPersist(ctx, src); err != nil {
			s.logger.Warn("initial refresh of new source failed",
				slog.String("source", src.Key),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// UpdateSource applies changes to an existing source. The cache entry is
// evicted so the next read refetches with the new settings.
func (s *LiveService) UpdateSource(ctx context.Context, src *models.LiveSource) error {
	existing, err := s.GetSource(ctx, src.Key)
	if err != nil {
		return err
	}

	existing.Name = src.Name
	existing.URL = src.URL
	existing.UserAgent = src.UserAgent
	existing.EpgURL = src.EpgURL
	existing.Disabled = src.Disabled
	if err := s.sources.Update(ctx, existing); err != nil {
		return err
	}

	s.refresher.CancelGuideTask(src.Key)
	s.cache.Delete(src.Key)
	return nil
}

// DeleteSource removes a source along with its cache entry, in-flight guide
// fetch, stored playlist body, and channel-edit overlay.
func (s *LiveService) DeleteSource(ctx context.Context, key string) error {
	if _, err := s.GetSource(ctx, key); err != nil {
		return err
	}
	if err := s.sources.DeleteByKey(ctx, key); err != nil {
		return err
	}

	s.refresher.CancelGuideTask(key)
	s.cache.Delete(key)
	if err := s.kv.Delete(ctx, models.LiveM3UKey(key)); err != nil {
		s.logger.Warn("deleting stored playlist failed", slog.String("source", key), slog.String("error", err.Error()))
	}
	if err := s.kv.Delete(ctx, models.LiveChannelsKey(key)); err != nil {
		s.logger.Warn("deleting channel overlay failed", slog.String("source", key), slog.String("error", err.Error()))
	}
	return nil
}

// Channels returns the channel data for a source, refreshing on a cache miss.
func (s *LiveService) Channels(ctx context.Context, key string) (*models.LiveChannels, error) {
	if data := s.cache.Get(ctx, key); data != nil {
		return data, nil
	}

	src, err := s.GetSource(ctx, key)
	if err != nil {
		return nil, err
	}
	if _, err := s.refreshAndPersist(ctx, src); err != nil {
		return nil, err
	}

	data := s.cache.Get(ctx, key)
	if data == nil {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotFound, key)
	}
	return data, nil
}

// Refresh refetches one source's playlist and returns the channel count.
func (s *LiveService) Refresh(ctx context.Context, key string) (int, error) {
	src, err := s.GetSource(ctx, key)
	if err != nil {
		return 0, err
	}
	return s.refreshAndPersist(ctx, src)
}

// RefreshAll refreshes every enabled source sequentially. Individual failures
// are logged and skipped; the first error is returned after all sources have
// been attempted.
func (s *LiveService) RefreshAll(ctx context.Context) error {
	enabled, err := s.sources.GetEnabled(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	for _, src := range enabled {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		count, err := s.refreshAndPersist(ctx, src)
		if err != nil {
			s.logger.Error("refresh failed",
				slog.String("source", src.Key),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.Debug("refreshed", slog.String("source", src.Key), slog.Int("channels", count))
	}
	return firstErr
}

// SaveChannelEdits stores an edited channel list as the durable overlay for a
// source. Subsequent cache reads pick it up without invalidation.
func (s *LiveService) SaveChannelEdits(ctx context.Context, key string, channels []models.Channel) error {
	if _, err := s.GetSource(ctx, key); err != nil {
		return err
	}
	payload, err := json.Marshal(channels)
	if err != nil {
		return fmt.Errorf("encoding channel edits: %w", err)
	}
	return s.kv.Set(ctx, models.LiveChannelsKey(key), string(payload))
}

// ClearChannelEdits removes the channel-edit overlay for a source.
func (s *LiveService) ClearChannelEdits(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, models.LiveChannelsKey(key))
}

// StorePlaylist saves a raw playlist body in the durable store. A source
// whose URL is the matching pointer (/api/live/m3u?key=...) reads it from
// there instead of the network.
func (s *LiveService) StorePlaylist(ctx context.Context, storeKey, content string) error {
	return s.kv.Set(ctx, models.LiveM3UKey(storeKey), content)
}

// StoredPlaylist returns a raw playlist body from the durable store.
func (s *LiveService) StoredPlaylist(ctx context.Context, storeKey string) (string, bool, error) {
	return s.kv.Get(ctx, models.LiveM3UKey(storeKey))
}

// refreshAndPersist runs one refresh and writes the resulting channel count
// back to the source row.
func (s *LiveService) refreshAndPersist(ctx context.Context, src *models.LiveSource) (int, error) {
	count, err := s.refresher.Refresh(ctx, src)
	if err != nil {
		return 0, err
	}
	if err := s.sources.Update(ctx, src); err != nil {
		s.logger.Warn("persisting channel count failed",
			slog.String("source", src.Key),
			slog.String("error", err.Error()),
		)
	}
	return count, nil
}
