package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/misttv/misttv/internal/config"
	"github.com/misttv/misttv/internal/httpclient"
	"github.com/misttv/misttv/internal/models"
	"github.com/misttv/misttv/internal/repository"
	"github.com/misttv/misttv/pkg/m3u"
	"github.com/misttv/misttv/pkg/xmltv"
)

// storedPlaylistPath is the durable-store pointer prefix: a source whose URL
// looks like /api/live/m3u?key=xyz reads its playlist body from the store
// instead of the network.
const storedPlaylistPath = "/api/live/m3u"

// Refresher orchestrates one live source refresh: obtain the raw playlist,
// parse it, overwrite the cache entry, and kick off the detached guide fetch.
type Refresher struct {
	cache  *Cache
	kv     repository.KVRepository
	client *httpclient.Client
	cfg    config.LiveConfig
	logger *slog.Logger

	// tasks tracks the in-flight guide fetch per source key so a newer
	// refresh or a source deletion can cancel it.
	tasksMu sync.Mutex
	tasks   map[string]*guideTask
	wg      sync.WaitGroup
}

// guideTask is one detached guide fetch.
type guideTask struct {
	cancel context.CancelFunc
}

// NewRefresher creates a refresher writing into cache.
func NewRefresher(cache *Cache, kv repository.KVRepository, client *httpclient.Client, cfg config.LiveConfig, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		cache:  cache,
		kv:     kv,
		client: client,
		cfg:    cfg,
		logger: logger,
		tasks:  make(map[string]*guideTask),
	}
}

// Refresh fetches and parses the source's playlist and replaces its cache
// entry, returning the parsed channel count.
//
// A fetch failure is not fatal when a cache entry already exists: the cached
// channel count is returned and the stale entry keeps serving (a transient
// feed outage must not blank the channel list). Without a cached entry the
// failure propagates. Zero is a valid count for an empty feed.
//
// The guide fetch is fire-and-forget: refresh latency never depends on guide
// size, and guide failures are logged, not surfaced.
func (r *Refresher) Refresh(ctx context.Context, src *models.LiveSource) (int, error) {
	pl, err := r.loadPlaylist(ctx, src)
	if err != nil {
		if errors.Is(err, ErrStoredPlaylistMissing) {
			return 0, err
		}
		if cached, ok := r.cache.ChannelCount(src.Key); ok {
			r.logger.Warn("refresh failed, keeping cached channels",
				slog.String("source", src.Key),
				slog.Int("cached_channels", cached),
				slog.String("error", err.Error()),
			)
			return cached, nil
		}
		return 0, fmt.Errorf("%w: source %q: %v", ErrFetchFailed, src.Key, err)
	}

	channels := channelsFromPlaylist(pl)
	epgURL := src.EpgURL
	if epgURL == "" {
		epgURL = pl.TvgURL
	}

	data := &models.LiveChannels{
		ChannelNumber: len(channels),
		Channels:      channels,
		EpgURL:        epgURL,
		Epgs:          xmltv.Guide{},
	}
	gen := r.cache.Put(src.Key, data)

	if epgURL != "" {
		r.spawnGuideTask(src.Key, epgURL, src.EffectiveUserAgent(r.cfg.UserAgent), gen, tvgIDs(channels))
	}

	src.MarkRefreshed(len(channels))
	r.logger.Info("live source refreshed",
		slog.String("source", src.Key),
		slog.Int("channels", len(channels)),
		slog.Bool("guide_scheduled", epgURL != ""),
	)

	return len(channels), nil
}

// loadPlaylist obtains and parses the raw playlist for src.
//
// Resolution order: durable-store pointer, root-relative path against the
// configured base URL, absolute URL. Network fetches are bounded by the
// configured fetch timeout.
func (r *Refresher) loadPlaylist(ctx context.Context, src *models.LiveSource) (*m3u.Playlist, error) {
	parser := &m3u.Parser{UngroupedLabel: r.cfg.UngroupedLabel}

	if strings.HasPrefix(src.URL, storedPlaylistPath+"?") {
		storeKey, err := storedPlaylistKey(src.URL)
		if err != nil {
			return nil, err
		}
		content, ok, err := r.kv.Get(ctx, models.LiveM3UKey(storeKey))
		if err != nil {
			return nil, fmt.Errorf("reading stored playlist %q: %w", storeKey, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: store key %q", ErrStoredPlaylistMissing, storeKey)
		}
		return parser.Parse(src.Key, content), nil
	}

	fetchURL := src.URL
	if strings.HasPrefix(fetchURL, "/") {
		fetchURL = strings.TrimRight(r.cfg.BaseURL, "/") + fetchURL
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()

	resp, err := r.client.Get(fetchCtx, fetchURL, src.EffectiveUserAgent(r.cfg.UserAgent))
	if err != nil {
		return nil, fmt.Errorf("fetching playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching playlist: unexpected status %d", resp.StatusCode)
	}

	pl, err := parser.ParseCompressed(src.Key, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading playlist body: %w", err)
	}
	return pl, nil
}

// spawnGuideTask starts the detached guide fetch for one refresh generation,
// cancelling any fetch still in flight for the same source. The completion
// only lands when the cache slot still belongs to gen; a stale completion is
// dropped (last-write-wins is acceptable for this best-effort feature).
func (r *Refresher) spawnGuideTask(key, epgURL, userAgent string, gen uint64, ids []string) {
	taskCtx, cancel := context.WithCancel(context.Background())
	task := &guideTask{cancel: cancel}

	r.tasksMu.Lock()
	if prev, ok := r.tasks[key]; ok {
		prev.cancel()
	}
	r.tasks[key] = task
	r.tasksMu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer func() {
			r.tasksMu.Lock()
			if r.tasks[key] == task {
				delete(r.tasks, key)
			}
			r.tasksMu.Unlock()
		}()

		guide := FetchGuide(taskCtx, r.client, epgURL, userAgent, ids)
		if len(guide) == 0 {
			return
		}
		if !r.cache.SetGuide(key, gen, guide) {
			r.logger.Debug("dropping stale guide completion",
				slog.String("source", key),
			)
			return
		}
		r.logger.Info("guide loaded",
			slog.String("source", key),
			slog.Int("channels_with_programmes", len(guide)),
		)
	}()
}

// CancelGuideTask cancels the in-flight guide fetch for key, if any.
// Called when a live source is deleted.
func (r *Refresher) CancelGuideTask(key string) {
	r.tasksMu.Lock()
	defer r.tasksMu.Unlock()
	if task, ok := r.tasks[key]; ok {
		task.cancel()
		delete(r.tasks, key)
	}
}

// Close cancels all in-flight guide fetches and waits for them to return.
func (r *Refresher) Close() {
	r.tasksMu.Lock()
	for key, task := range r.tasks {
		task.cancel()
		delete(r.tasks, key)
	}
	r.tasksMu.Unlock()
	r.wg.Wait()
}

// storedPlaylistKey extracts the store key from a pointer URL.
func storedPlaylistKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing stored playlist pointer: %w", err)
	}
	key := u.Query().Get("key")
	if key == "" {
		return "", fmt.Errorf("stored playlist pointer %q has no key", rawURL)
	}
	return key, nil
}

// channelsFromPlaylist converts parser output to the cache model.
func channelsFromPlaylist(pl *m3u.Playlist) []models.Channel {
	channels := make([]models.Channel, 0, len(pl.Channels))
	for _, ch := range pl.Channels {
		channels = append(channels, models.Channel{
			ID:         ch.ID,
			TvgID:      ch.TvgID,
			Name:       ch.Name,
			Logo:       ch.Logo,
			Group:      ch.Group,
			URL:        ch.URL,
			Resolution: ch.Resolution,
		})
	}
	return channels
}

// tvgIDs collects the distinct non-empty tvg-ids of a channel set, the
// interest filter for the guide parser.
func tvgIDs(channels []models.Channel) []string {
	seen := make(map[string]struct{}, len(channels))
	ids := make([]string, 0, len(channels))
	for i := range channels {
		id := channels[i].TvgID
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
