package confmerge

import (
	"sort"
	"strings"

	"github.com/misttv/misttv/internal/models"
)

// InlinePlaylistKey is the durable-store key under which an M3U-format config
// file body is stored, and the key of the synthesized live source pointing at
// it.
const InlinePlaylistKey = "config_file"

// Result carries merge side outputs that are not part of the admin config
// itself.
type Result struct {
	// InlinePlaylist is the raw M3U body when the config file is itself a
	// playlist. The caller stores it in the durable store under
	// models.LiveM3UKey(InlinePlaylistKey); the merge has already added the
	// matching pointer live source.
	InlinePlaylist string
}

// Merge folds cfg.ConfigFile into the typed entity families in place.
//
// Per family the reconciliation is keyed - video sources and live sources by
// Key, categories by (query, type) - and follows the same three-way rule:
//
//   - present in both: display fields are overwritten from the file, the
//     persisted Disabled flag survives, and the entry is tagged "config".
//   - file-only: inserted tagged "config", unless another entry already
//     carries the same normalized URL (a rename of an existing endpoint must
//     not produce a duplicate).
//   - persisted-only: kept and re-tagged "custom", since the file no longer
//     vouches for it.
//
// Persisted order is preserved; file-only inserts append in file order.
func Merge(cfg *models.AdminConfig) Result {
	var res Result

	fileVideos, fileCats, fileLives := []models.VideoSource(nil), []models.CustomCategory(nil), []models.LiveSource(nil)

	switch blob := Classify(cfg.ConfigFile).(type) {
	case JSONBlob:
		fileVideos, fileCats, fileLives = fromJSON(blob.Config)
	case M3UBlob:
		res.InlinePlaylist = blob.Content
		fileLives = []models.LiveSource{{
			Key:  InlinePlaylistKey,
			Name: "Config Playlist",
			URL:  "/api/live/m3u?key=" + InlinePlaylistKey,
		}}
	case LineRecordsBlob:
		fileVideos, fileLives = fromLineRecords(blob.Records)
	}

	cfg.VideoSources = mergeVideoSources(fileVideos, cfg.VideoSources)
	cfg.Categories = mergeCategories(fileCats, cfg.Categories)
	cfg.Lives = mergeLives(fileLives, cfg.Lives)

	return res
}

func fromJSON(fc FileConfig) ([]models.VideoSource, []models.CustomCategory, []models.LiveSource) {
	videos := make([]models.VideoSource, 0, len(fc.APISites))
	for key, site := range fc.APISites {
		if key == "" || site.API == "" {
			continue
		}
		videos = append(videos, models.VideoSource{
			Key:    key,
			Name:   site.Name,
			API:    site.API,
			Detail: site.Detail,
		})
	}
	sortVideoSources(videos)

	cats := make([]models.CustomCategory, 0, len(fc.CustomCategories))
	for _, c := range fc.CustomCategories {
		if c.Query == "" {
			continue
		}
		cats = append(cats, models.CustomCategory{
			Name:  c.Name,
			Type:  c.Type,
			Query: c.Query,
		})
	}

	lives := make([]models.LiveSource, 0, len(fc.Lives))
	for _, l := range fc.Lives {
		if l.Key == "" || l.URL == "" {
			continue
		}
		lives = append(lives, models.LiveSource{
			Key:       l.Key,
			Name:      l.Name,
			URL:       l.URL,
			UserAgent: l.UA,
			EpgURL:    l.EPG,
		})
	}

	return videos, cats, lives
}

func fromLineRecords(records []LineRecord) ([]models.VideoSource, []models.LiveSource) {
	var videos []models.VideoSource
	var lives []models.LiveSource
	for _, rec := range records {
		if rec.IsVideoSource {
			videos = append(videos, models.VideoSource{
				Key:    rec.Key,
				Name:   rec.Name,
				API:    rec.Value,
				Detail: rec.Detail,
			})
		} else {
			lives = append(lives, models.LiveSource{
				Key:  rec.Key,
				Name: rec.Name,
				URL:  rec.Value,
			})
		}
	}
	return videos, lives
}

func mergeVideoSources(file, persisted []models.VideoSource) []models.VideoSource {
	fileByKey := make(map[string]models.VideoSource, len(file))
	for _, f := range file {
		fileByKey[f.Key] = f
	}
	persistedKeys := make(map[string]struct{}, len(persisted))
	seenAPIs := make(map[string]struct{}, len(persisted))

	out := make([]models.VideoSource, 0, len(persisted)+len(file))
	for _, p := range persisted {
		persistedKeys[p.Key] = struct{}{}
		if f, ok := fileByKey[p.Key]; ok {
			p.Name, p.API, p.Detail = f.Name, f.API, f.Detail
			p.From = models.ProvenanceConfig
		} else if p.From == models.ProvenanceConfig {
			p.From = models.ProvenanceCustom
		}
		seenAPIs[normalizeURL(p.API)] = struct{}{}
		out = append(out, p)
	}

	for _, f := range file {
		if _, ok := persistedKeys[f.Key]; ok {
			continue
		}
		if _, ok := seenAPIs[normalizeURL(f.API)]; ok {
			continue
		}
		f.From = models.ProvenanceConfig
		f.Disabled = nil
		seenAPIs[normalizeURL(f.API)] = struct{}{}
		out = append(out, f)
	}

	return out
}

func mergeCategories(file, persisted []models.CustomCategory) []models.CustomCategory {
	fileByKey := make(map[models.CategoryKey]models.CustomCategory, len(file))
	for _, f := range file {
		fileByKey[f.Key()] = f
	}
	persistedKeys := make(map[models.CategoryKey]struct{}, len(persisted))

	out := make([]models.CustomCategory, 0, len(persisted)+len(file))
	for _, p := range persisted {
		persistedKeys[p.Key()] = struct{}{}
		if f, ok := fileByKey[p.Key()]; ok {
			p.Name = f.Name
			p.From = models.ProvenanceConfig
		} else if p.From == models.ProvenanceConfig {
			p.From = models.ProvenanceCustom
		}
		out = append(out, p)
	}

	for _, f := range file {
		if _, ok := persistedKeys[f.Key()]; ok {
			continue
		}
		f.From = models.ProvenanceConfig
		f.Disabled = nil
		out = append(out, f)
	}

	return out
}

func mergeLives(file, persisted []models.LiveSource) []models.LiveSource {
	fileByKey := make(map[string]models.LiveSource, len(file))
	for _, f := range file {
		fileByKey[f.Key] = f
	}
	persistedKeys := make(map[string]struct{}, len(persisted))
	seenURLs := make(map[string]struct{}, len(persisted))

	out := make([]models.LiveSource, 0, len(persisted)+len(file))
	for _, p := range persisted {
		persistedKeys[p.Key] = struct{}{}
		if f, ok := fileByKey[p.Key]; ok {
			p.Name, p.URL = f.Name, f.URL
			p.UserAgent, p.EpgURL = f.UserAgent, f.EpgURL
			p.From = models.ProvenanceConfig
		} else if p.From == models.ProvenanceConfig {
			p.From = models.ProvenanceCustom
		}
		seenURLs[normalizeURL(p.URL)] = struct{}{}
		out = append(out, p)
	}

	for _, f := range file {
		if _, ok := persistedKeys[f.Key]; ok {
			continue
		}
		if _, ok := seenURLs[normalizeURL(f.URL)]; ok {
			continue
		}
		f.From = models.ProvenanceConfig
		f.Disabled = nil
		seenURLs[normalizeURL(f.URL)] = struct{}{}
		out = append(out, f)
	}

	return out
}

// normalizeURL canonicalizes a URL for duplicate detection: trimmed,
// lowercased, trailing slash removed.
func normalizeURL(u string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(u)), "/")
}

// sortVideoSources orders sources by key for deterministic output; JSON
// object iteration order is not stable.
func sortVideoSources(videos []models.VideoSource) {
	sort.Slice(videos, func(i, j int) bool { return videos[i].Key < videos[j].Key })
}
