package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misttv/misttv/internal/config"
	"github.com/misttv/misttv/internal/httpclient"
	"github.com/misttv/misttv/internal/live"
	"github.com/misttv/misttv/internal/models"
)

// memKV is an in-memory KVRepository.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) ListKeys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// memSourceRepo is an in-memory LiveSourceRepository preserving insertion
// order.
type memSourceRepo struct {
	mu      sync.Mutex
	order   []string
	sources map[string]*models.LiveSource
}

func newMemSourceRepo() *memSourceRepo {
	return &memSourceRepo{sources: make(map[string]*models.LiveSource)}
}

func (r *memSourceRepo) Create(_ context.Context, source *models.LiveSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *source
	r.sources[source.Key] = &cp
	r.order = append(r.order, source.Key)
	return nil
}

func (r *memSourceRepo) GetByKey(_ context.Context, key string) (*models.LiveSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[key]
	if !ok {
		return nil, nil
	}
	cp := *src
	return &cp, nil
}

func (r *memSourceRepo) GetAll(_ context.Context) ([]*models.LiveSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.LiveSource, 0, len(r.order))
	for _, key := range r.order {
		cp := *r.sources[key]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memSourceRepo) GetEnabled(ctx context.Context) ([]*models.LiveSource, error) {
	all, _ := r.GetAll(ctx)
	out := all[:0]
	for _, s := range all {
		if !s.IsDisabled() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSourceRepo) Update(_ context.Context, source *models.LiveSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *source
	r.sources[source.Key] = &cp
	return nil
}

func (r *memSourceRepo) Upsert(ctx context.Context, source *models.LiveSource) error {
	r.mu.Lock()
	_, exists := r.sources[source.Key]
	r.mu.Unlock()
	if exists {
		return r.Update(ctx, source)
	}
	return r.Create(ctx, source)
}

func (r *memSourceRepo) DeleteByKey(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func newTestLiveService(t *testing.T, kv *memKV, repo *memSourceRepo) *LiveService {
	t.Helper()

	clientCfg := httpclient.DefaultConfig()
	clientCfg.RetryAttempts = 0
	client := httpclient.New(clientCfg)

	cfg := config.LiveConfig{
		UserAgent:    "test-agent",
		FetchTimeout: 5 * time.Second,
	}

	cache := live.NewCache(kv, nil)
	refresher := live.NewRefresher(cache, kv, client, cfg, nil)
	t.Cleanup(refresher.Close)

	return NewLiveService(repo, kv, cache, refresher, nil)
}

const storedPlaylist = "#EXTM3U\n" +
	"#EXTINF:-1 tvg-id=\"ch0\",Channel Zero\nhttp://cdn.example.com/ch0.m3u8\n" +
	"#EXTINF:-1 tvg-id=\"ch1\",Channel One\nhttp://cdn.example.com/ch1.m3u8\n"

func TestLiveServiceChannelsRefreshesOnMiss(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	repo := newMemSourceRepo()
	svc := newTestLiveService(t, kv, repo)

	require.NoError(t, kv.Set(ctx, models.LiveM3UKey("mylist"), storedPlaylist))
	require.NoError(t, repo.Create(ctx, &models.LiveSource{
		Key:  "src",
		Name: "Stored",
		URL:  "/api/live/m3u?key=mylist",
		From: models.ProvenanceCustom,
	}))

	data, err := svc.Channels(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, 2, data.ChannelNumber)

	// The refreshed channel count is persisted on the source row.
	src, err := svc.GetSource(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, 2, src.ChannelNumber)
}

func TestLiveServiceChannelsUnknownSource(t *testing.T) {
	svc := newTestLiveService(t, newMemKV(), newMemSourceRepo())

	_, err := svc.Channels(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestLiveServiceSaveChannelEditsAppliesOnRead(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	repo := newMemSourceRepo()
	svc := newTestLiveService(t, kv, repo)

	require.NoError(t, kv.Set(ctx, models.LiveM3UKey("mylist"), storedPlaylist))
	require.NoError(t, repo.Create(ctx, &models.LiveSource{
		Key: "src", Name: "Stored", URL: "/api/live/m3u?key=mylist", From: models.ProvenanceCustom,
	}))

	data, err := svc.Channels(ctx, "src")
	require.NoError(t, err)
	require.Equal(t, 2, data.ChannelNumber)

	disabled := true
	edited := append([]models.Channel(nil), data.Channels...)
	edited[0].Disabled = &disabled
	require.NoError(t, svc.SaveChannelEdits(ctx, "src", edited))

	data, err = svc.Channels(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, 1, data.ChannelNumber)

	require.NoError(t, svc.ClearChannelEdits(ctx, "src"))
	data, err = svc.Channels(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, 2, data.ChannelNumber)
}

func TestLiveServiceCreateRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	repo := newMemSourceRepo()
	svc := newTestLiveService(t, kv, repo)

	require.NoError(t, kv.Set(ctx, models.LiveM3UKey("mylist"), storedPlaylist))

	src := &models.LiveSource{Key: "src", Name: "A", URL: "/api/live/m3u?key=mylist"}
	require.NoError(t, svc.CreateSource(ctx, src))

	err := svc.CreateSource(ctx, &models.LiveSource{Key: "src", Name: "B", URL: "/api/live/m3u?key=mylist"})
	assert.ErrorIs(t, err, ErrSourceExists)
}

func TestLiveServiceDeleteCleansUp(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	repo := newMemSourceRepo()
	svc := newTestLiveService(t, kv, repo)

	require.NoError(t, kv.Set(ctx, models.LiveM3UKey("src"), storedPlaylist))
	require.NoError(t, kv.Set(ctx, models.LiveChannelsKey("src"), "[]"))
	require.NoError(t, repo.Create(ctx, &models.LiveSource{
		Key: "src", Name: "Stored", URL: "/api/live/m3u?key=src", From: models.ProvenanceCustom,
	}))

	require.NoError(t, svc.DeleteSource(ctx, "src"))

	_, err := svc.GetSource(ctx, "src")
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, ok, _ := kv.Get(ctx, models.LiveM3UKey("src"))
	assert.False(t, ok)
	_, ok, _ = kv.Get(ctx, models.LiveChannelsKey("src"))
	assert.False(t, ok)
}

func TestAdminServiceReconcileSyncsSources(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	repo := newMemSourceRepo()

	svc := NewAdminService(kv, repo, config.AdminConfig{OwnerUsername: "root"}, nil)

	ac := &models.AdminConfig{
		ConfigFile: `{"lives": [{"key": "main", "name": "Main", "url": "https://feed.example/main.m3u"}]}`,
	}
	require.NoError(t, svc.Reconcile(ctx, ac))

	// The merged live source lands in the table.
	row, err := repo.GetByKey(ctx, "main")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.ProvenanceConfig, row.From)

	// The owner invariant is applied before persisting.
	stored, err := svc.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored.Users, 1)
	assert.Equal(t, "root", stored.Users[0].Username)
	assert.Equal(t, models.RoleOwner, stored.Users[0].Role)
}

func TestAdminServiceReconcileRemovesStaleRows(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	repo := newMemSourceRepo()
	require.NoError(t, repo.Create(ctx, &models.LiveSource{
		Key: "stale", Name: "Stale", URL: "https://old.example/list.m3u", From: models.ProvenanceConfig,
	}))

	svc := NewAdminService(kv, repo, config.AdminConfig{OwnerUsername: "root"}, nil)
	require.NoError(t, svc.Reconcile(ctx, &models.AdminConfig{}))

	row, err := repo.GetByKey(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestAdminServiceInlinePlaylist(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	repo := newMemSourceRepo()

	svc := NewAdminService(kv, repo, config.AdminConfig{OwnerUsername: "root"}, nil)

	ac := &models.AdminConfig{ConfigFile: storedPlaylist}
	require.NoError(t, svc.Reconcile(ctx, ac))

	// The playlist body is stored behind the pointer the synthesized source
	// uses.
	body, ok, err := kv.Get(ctx, models.LiveM3UKey("config_file"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, storedPlaylist, body)

	row, err := repo.GetByKey(ctx, "config_file")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "/api/live/m3u?key=config_file", row.URL)
}

func TestAdminServiceLoadEmpty(t *testing.T) {
	svc := NewAdminService(newMemKV(), newMemSourceRepo(), config.AdminConfig{OwnerUsername: "root"}, nil)

	ac, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ac.VideoSources)
	assert.Empty(t, ac.Lives)
}

func TestAdminServiceUpdateConfigFile(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	repo := newMemSourceRepo()
	svc := NewAdminService(kv, repo, config.AdminConfig{OwnerUsername: "root"}, nil)

	ac, err := svc.UpdateConfigFile(ctx, `{"api_site": {"s1": {"name": "One", "api": "https://one.example/api"}}}`)
	require.NoError(t, err)
	require.Len(t, ac.VideoSources, 1)
	assert.Equal(t, models.ProvenanceConfig, ac.VideoSources[0].From)

	// Blob survives the roundtrip for later re-merges.
	stored, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, stored.ConfigFile, "api_site")
}
