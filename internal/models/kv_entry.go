package models

import "time"

// KVEntry is one row of the durable key-value store.
//
// The live pipeline keeps three kinds of entries here: raw playlist bodies
// under "live_m3u_{key}", channel-edit overlays under "live_channels_{key}",
// and the admin configuration under "admin_config".
type KVEntry struct {
	// Key is the entry key.
	Key string `gorm:"primaryKey;size:512" json:"key"`

	// Value is the entry body, typically JSON or raw playlist text.
	Value string `json:"value"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Durable-store key prefixes and keys used by the live pipeline.
const (
	// KVLiveM3UPrefix prefixes stored raw playlist bodies.
	KVLiveM3UPrefix = "live_m3u_"

	// KVLiveChannelsPrefix prefixes channel-edit overlays.
	KVLiveChannelsPrefix = "live_channels_"

	// KVAdminConfigKey stores the JSON-encoded AdminConfig.
	KVAdminConfigKey = "admin_config"
)

// TableName returns the table name for KVEntry.
func (KVEntry) TableName() string {
	return "kv_entries"
}

// LiveM3UKey returns the durable-store key holding a source's raw playlist.
func LiveM3UKey(sourceKey string) string {
	return KVLiveM3UPrefix + sourceKey
}

// LiveChannelsKey returns the durable-store key holding a source's
// channel-edit overlay.
func LiveChannelsKey(sourceKey string) string {
	return KVLiveChannelsPrefix + sourceKey
}
