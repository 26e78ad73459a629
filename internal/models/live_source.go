package models

import (
	"net/url"
	"strings"

	"gorm.io/gorm"
)

// Provenance marks where a configuration entry originated.
type Provenance string

const (
	// ProvenanceConfig marks entries sourced from the static config file.
	ProvenanceConfig Provenance = "config"
	// ProvenanceCustom marks entries added manually by an admin.
	ProvenanceCustom Provenance = "custom"
	// ProvenanceSubscription marks entries imported from a subscribed feed.
	ProvenanceSubscription Provenance = "subscription"
)

// LiveSource is one configured playlist feed.
type LiveSource struct {
	BaseModel

	// Key is the unique, immutable identifier for the source. Channel IDs
	// and durable-store keys are derived from it.
	Key string `gorm:"uniqueIndex;not null;size:255" json:"key"`

	// Name is a user-friendly name for the source.
	Name string `gorm:"not null;size:255" json:"name"`

	// URL is the M3U location: an absolute network URL, a root-relative
	// path, or a durable-store pointer of the form /api/live/m3u?key=...
	URL string `gorm:"not null;size:2048" json:"url"`

	// UserAgent overrides the default User-Agent for fetches (optional).
	UserAgent string `gorm:"size:512" json:"ua,omitempty"`

	// EpgURL is an explicit XMLTV guide URL. When empty, the URL discovered
	// in the playlist header is used instead.
	EpgURL string `gorm:"size:2048" json:"epg,omitempty"`

	// ChannelNumber is the channel count from the last successful refresh.
	ChannelNumber int `gorm:"default:0" json:"channelNumber"`

	// Disabled excludes the source from scheduled refreshes and listings.
	Disabled *bool `gorm:"default:false" json:"disabled,omitempty"`

	// From records the entry's provenance.
	From Provenance `gorm:"not null;default:'custom';size:20" json:"from"`
}

// TableName returns the table name for LiveSource.
func (LiveSource) TableName() string {
	return "live_sources"
}

// IsDisabled reports whether the source is disabled.
func (s *LiveSource) IsDisabled() bool {
	return BoolVal(s.Disabled)
}

// EffectiveUserAgent returns the source UA override, or fallback when unset.
func (s *LiveSource) EffectiveUserAgent(fallback string) string {
	if s.UserAgent != "" {
		return s.UserAgent
	}
	return fallback
}

// MarkRefreshed records the channel count of a successful refresh.
func (s *LiveSource) MarkRefreshed(channelCount int) {
	s.ChannelNumber = channelCount
}

// Sanitize trims whitespace from user-provided fields.
func (s *LiveSource) Sanitize() {
	s.Key = strings.TrimSpace(s.Key)
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	s.UserAgent = strings.TrimSpace(s.UserAgent)
	s.EpgURL = strings.TrimSpace(s.EpgURL)
}

// Validate performs basic validation on the source.
func (s *LiveSource) Validate() error {
	s.Sanitize()

	if s.Key == "" {
		return ErrKeyRequired
	}
	if s.Name == "" {
		return ErrNameRequired
	}
	if s.URL == "" {
		return ErrURLRequired
	}
	if _, err := url.Parse(s.URL); err != nil {
		return ErrInvalidURL
	}
	if s.From == "" {
		s.From = ProvenanceCustom
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the source and generates a ULID.
func (s *LiveSource) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}

// BeforeUpdate is a GORM hook that validates the source before update.
func (s *LiveSource) BeforeUpdate(_ *gorm.DB) error {
	return s.Validate()
}
