package models

import "github.com/misttv/misttv/pkg/xmltv"

// Channel is one playable live entry parsed from an M3U playlist.
//
// The JSON field names match the wire format used for channel-edit overlays
// persisted in the durable store, so a saved edit round-trips losslessly.
type Channel struct {
	// ID is derived as "{sourceKey}-{ordinal}". It is stable within one
	// parse pass only; a reordered playlist produces different IDs.
	ID string `json:"id"`

	// TvgID links the channel to its EPG schedule. Empty when absent.
	TvgID string `json:"tvgId"`

	// Name is the EXTINF trailing title, falling back to tvg-name.
	Name string `json:"name"`

	// Logo is the channel logo URL from tvg-logo.
	Logo string `json:"logo"`

	// Group is the group-title value, or the ungrouped sentinel when absent.
	Group string `json:"group"`

	// URL is the stream URI, verbatim from the playlist.
	URL string `json:"url"`

	// Resolution is a best-effort quality token ("1080P", "4K", ...) derived
	// from the name or URL. Empty when no token matched.
	Resolution string `json:"resolution,omitempty"`

	// Disabled is only present after a user-edit overlay is applied from the
	// durable store; the parser never sets it.
	Disabled *bool `json:"disabled,omitempty"`
}

// IsDisabled reports whether an overlay marked the channel disabled.
func (c *Channel) IsDisabled() bool {
	return BoolVal(c.Disabled)
}

// LiveChannels is the cached parse result for one live source.
type LiveChannels struct {
	// ChannelNumber counts the non-disabled channels.
	ChannelNumber int `json:"channelNumber"`

	// Channels are the parsed (and possibly overlay-substituted) entries.
	Channels []Channel `json:"channels"`

	// EpgURL is the effective guide URL used for this source.
	EpgURL string `json:"epgUrl,omitempty"`

	// Epgs maps tvg-id to programmes, populated asynchronously after a
	// refresh completes. May be empty while the guide fetch is in flight.
	Epgs xmltv.Guide `json:"epgs,omitempty"`
}

// CountEnabled returns the number of channels not marked disabled.
func CountEnabled(channels []Channel) int {
	n := 0
	for i := range channels {
		if !channels[i].IsDisabled() {
			n++
		}
	}
	return n
}
