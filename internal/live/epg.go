package live

import (
	"context"
	"log/slog"

	"github.com/misttv/misttv/internal/httpclient"
	"github.com/misttv/misttv/pkg/xmltv"
)

// FetchGuide fetches and parses an XMLTV guide, filtered to the given
// tvg-ids. It never fails: an empty URL, a non-2xx response, or any fetch or
// stream error yields whatever partial guide accumulated (possibly empty).
// The guide is an enhancement, never required for playback.
func FetchGuide(ctx context.Context, client *httpclient.Client, epgURL, userAgent string, tvgIDs []string) xmltv.Guide {
	if epgURL == "" {
		return xmltv.Guide{}
	}

	resp, err := client.Get(ctx, epgURL, userAgent)
	if err != nil {
		slog.Debug("guide fetch failed",
			slog.String("url", epgURL),
			slog.String("error", err.Error()),
		)
		return xmltv.Guide{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Debug("guide fetch returned non-2xx status",
			slog.String("url", epgURL),
			slog.Int("status", resp.StatusCode),
		)
		return xmltv.Guide{}
	}

	return xmltv.ParseGuideCompressed(resp.Body, tvgIDs)
}
