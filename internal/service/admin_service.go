package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/misttv/misttv/internal/config"
	"github.com/misttv/misttv/internal/confmerge"
	"github.com/misttv/misttv/internal/models"
	"github.com/misttv/misttv/internal/repository"
)

// AdminService owns the persisted admin configuration: loading it from the
// durable store, folding config file blobs into it, and mirroring the merged
// live sources into the live source table.
type AdminService struct {
	kv      repository.KVRepository
	sources repository.LiveSourceRepository
	cfg     config.AdminConfig
	logger  *slog.Logger
}

// NewAdminService creates an admin service.
func NewAdminService(kv repository.KVRepository, sources repository.LiveSourceRepository, cfg config.AdminConfig, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		kv:      kv,
		sources: sources,
		cfg:     cfg,
		logger:  logger,
	}
}

// Load returns the persisted admin configuration, or an empty one when none
// has been stored yet.
func (s *AdminService) Load(ctx context.Context) (*models.AdminConfig, error) {
	value, ok, err := s.kv.Get(ctx, models.KVAdminConfigKey)
	if err != nil {
		return nil, fmt.Errorf("loading admin config: %w", err)
	}
	ac := &models.AdminConfig{}
	if !ok {
		return ac, nil
	}
	if err := json.Unmarshal([]byte(value), ac); err != nil {
		return nil, fmt.Errorf("decoding admin config: %w", err)
	}
	return ac, nil
}

// Bootstrap reconciles the admin configuration at startup. When a config file
// path is configured its contents replace the stored blob before the merge;
// otherwise whatever blob was last saved is re-merged, so invariant repair
// (dedup, owner pinning) runs on every start.
func (s *AdminService) Bootstrap(ctx context.Context) (*models.AdminConfig, error) {
	ac, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	if s.cfg.ConfigFile != "" {
		raw, err := os.ReadFile(s.cfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", s.cfg.ConfigFile, err)
		}
		ac.ConfigFile = string(raw)
	}

	if err := s.Reconcile(ctx, ac); err != nil {
		return nil, err
	}
	return ac, nil
}

// UpdateConfigFile replaces the stored config blob and reconciles.
func (s *AdminService) UpdateConfigFile(ctx context.Context, raw string) (*models.AdminConfig, error) {
	ac, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	ac.ConfigFile = raw
	if err := s.Reconcile(ctx, ac); err != nil {
		return nil, err
	}
	return ac, nil
}

// Save persists an admin configuration after running the self-check, so a
// structurally invalid config can never be stored.
func (s *AdminService) Save(ctx context.Context, ac *models.AdminConfig) error {
	confmerge.SelfCheck(ac, s.cfg.OwnerUsername)
	payload, err := json.Marshal(ac)
	if err != nil {
		return fmt.Errorf("encoding admin config: %w", err)
	}
	return s.kv.Set(ctx, models.KVAdminConfigKey, string(payload))
}

// Reconcile merges the config blob into ac, repairs invariants, persists the
// result, and mirrors the merged live sources into the live source table.
func (s *AdminService) Reconcile(ctx context.Context, ac *models.AdminConfig) error {
	res := confmerge.Merge(ac)

	if res.InlinePlaylist != "" {
		if err := s.kv.Set(ctx, models.LiveM3UKey(confmerge.InlinePlaylistKey), res.InlinePlaylist); err != nil {
			return fmt.Errorf("storing inline playlist: %w", err)
		}
	}

	if err := s.Save(ctx, ac); err != nil {
		return err
	}
	if err := s.syncLiveSources(ctx, ac.Lives); err != nil {
		return err
	}

	s.logger.Info("admin config reconciled",
		slog.Int("video_sources", len(ac.VideoSources)),
		slog.Int("categories", len(ac.Categories)),
		slog.Int("live_sources", len(ac.Lives)),
		slog.Int("users", len(ac.Users)),
	)
	return nil
}

// syncLiveSources mirrors the merged live source list into the table the live
// pipeline reads from. Rows absent from the merged list are removed.
func (s *AdminService) syncLiveSources(ctx context.Context, merged []models.LiveSource) error {
	keep := make(map[string]struct{}, len(merged))
	for i := range merged {
		src := merged[i]
		if err := src.Validate(); err != nil {
			s.logger.Warn("skipping invalid live source",
				slog.String("source", src.Key),
				slog.String("error", err.Error()),
			)
			continue
		}
		keep[src.Key] = struct{}{}
		if err := s.sources.Upsert(ctx, &src); err != nil {
			return fmt.Errorf("upserting live source %q: %w", src.Key, err)
		}
	}

	existing, err := s.sources.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, row := range existing {
		if _, ok := keep[row.Key]; ok {
			continue
		}
		if err := s.sources.DeleteByKey(ctx, row.Key); err != nil {
			return fmt.Errorf("removing live source %q: %w", row.Key, err)
		}
		s.logger.Info("removed live source no longer in config", slog.String("source", row.Key))
	}
	return nil
}
