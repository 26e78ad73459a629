// Package confmerge reconciles a raw config file blob (JSON, M3U, or
// line-oriented records) with the persisted admin configuration, producing a
// deduplicated, provenance-tagged superset of video sources, categories, and
// live sources.
package confmerge

import (
	"encoding/json"
	"strings"
)

// Blob is a classified config file body. Exactly one concrete type is
// produced per input; each has its own parser rather than sniffing formats
// inline at merge time.
type Blob interface {
	blobKind() string
}

// JSONBlob is a structured JSON config file.
type JSONBlob struct {
	Config FileConfig
}

func (JSONBlob) blobKind() string { return "json" }

// M3UBlob is a config file that is itself an M3U playlist. It is surfaced to
// the caller as an inline playlist stored behind a durable-store pointer.
type M3UBlob struct {
	Content string
}

func (M3UBlob) blobKind() string { return "m3u" }

// LineRecordsBlob is a line-oriented config file of comma-separated records.
type LineRecordsBlob struct {
	Records []LineRecord
}

func (LineRecordsBlob) blobKind() string { return "lines" }

// FileConfig mirrors the JSON config file shape.
type FileConfig struct {
	APISites         map[string]FileAPISite `json:"api_site"`
	CustomCategories []FileCategory         `json:"custom_category"`
	Lives            []FileLive             `json:"lives"`
}

// FileAPISite is one video-search API in the JSON config.
type FileAPISite struct {
	Name   string `json:"name"`
	API    string `json:"api"`
	Detail string `json:"detail,omitempty"`
}

// FileCategory is one custom category in the JSON config.
type FileCategory struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Query string `json:"query"`
}

// FileLive is one live source in the JSON config.
type FileLive struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	URL  string `json:"url"`
	UA   string `json:"ua,omitempty"`
	EPG  string `json:"epg,omitempty"`
}

// LineRecord is one parsed line of a line-oriented config file.
type LineRecord struct {
	Key    string
	Name   string
	Value  string
	Detail string

	// IsVideoSource distinguishes a video-search API record from a live
	// playlist record.
	IsVideoSource bool
}

// Classify determines the config blob format and parses it.
//
// Order: JSON is preferred; then M3U heuristics (starts with #EXTM3U or
// contains #EXTINF); anything else is treated as line-oriented records.
func Classify(raw string) Blob {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return LineRecordsBlob{}
	}

	var fc FileConfig
	if err := json.Unmarshal([]byte(trimmed), &fc); err == nil {
		return JSONBlob{Config: fc}
	}

	if strings.HasPrefix(trimmed, "#EXTM3U") || strings.Contains(trimmed, "#EXTINF") {
		return M3UBlob{Content: raw}
	}

	return LineRecordsBlob{Records: parseLineRecords(trimmed)}
}

// parseLineRecords parses line-oriented records, one per line.
//
// Two shapes are accepted, with #-prefixed comments ignored:
//
//	key,name,api[,detail]   - comma-separated fields
//	key[,name]=url          - key (and optional name) with an explicit value
//
// A record is a video source when it has four fields or when its value looks
// like a search API endpoint; otherwise it is a live source.
func parseLineRecords(raw string) []LineRecord {
	var records []LineRecord

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if idx := strings.Index(line, "="); idx >= 0 {
			fields := splitTrim(line[:idx])
			value := strings.TrimSpace(line[idx+1:])
			if len(fields) == 0 || fields[0] == "" || value == "" {
				continue
			}
			rec := LineRecord{
				Key:           fields[0],
				Name:          fields[0],
				Value:         value,
				IsVideoSource: looksLikeAPIEndpoint(value),
			}
			if len(fields) >= 2 && fields[1] != "" {
				rec.Name = fields[1]
			}
			records = append(records, rec)
			continue
		}

		fields := splitTrim(line)
		switch {
		case len(fields) >= 4:
			records = append(records, LineRecord{
				Key:           fields[0],
				Name:          fields[1],
				Value:         fields[2],
				Detail:        fields[3],
				IsVideoSource: true,
			})
		case len(fields) == 3:
			records = append(records, LineRecord{
				Key:           fields[0],
				Name:          fields[1],
				Value:         fields[2],
				IsVideoSource: looksLikeAPIEndpoint(fields[2]),
			})
		}
	}

	return records
}

// looksLikeAPIEndpoint reports whether a URL looks like a video-search API
// rather than a playlist location. Apple-CMS style endpoints
// (api.php/provide/vod) are the common case.
func looksLikeAPIEndpoint(v string) bool {
	v = strings.ToLower(v)
	return strings.Contains(v, "?ac=") ||
		strings.Contains(v, "/api/") ||
		strings.Contains(v, "api.php") ||
		strings.Contains(v, "provide/vod")
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
