package handlers

import (
	"time"

	"github.com/misttv/misttv/internal/models"
)

// LiveSourceResponse is the API representation of a live source.
type LiveSourceResponse struct {
	ID            string `json:"id"`
	Key           string `json:"key"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	UserAgent     string `json:"ua,omitempty"`
	EpgURL        string `json:"epg,omitempty"`
	ChannelNumber int    `json:"channelNumber"`
	Disabled      bool   `json:"disabled"`
	From          string `json:"from"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// LiveSourceFromModel converts a live source model to its API representation.
func LiveSourceFromModel(s *models.LiveSource) LiveSourceResponse {
	resp := LiveSourceResponse{
		ID:            s.ID.String(),
		Key:           s.Key,
		Name:          s.Name,
		URL:           s.URL,
		UserAgent:     s.UserAgent,
		EpgURL:        s.EpgURL,
		ChannelNumber: s.ChannelNumber,
		Disabled:      s.IsDisabled(),
		From:          string(s.From),
	}
	if !s.CreatedAt.IsZero() {
		resp.CreatedAt = s.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// SaveLiveSourceRequest carries the editable fields of a live source.
type SaveLiveSourceRequest struct {
	Key       string `json:"key" doc:"Unique source key" minLength:"1"`
	Name      string `json:"name" doc:"Display name" minLength:"1"`
	URL       string `json:"url" doc:"Playlist URL, root-relative path, or stored-playlist pointer" minLength:"1"`
	UserAgent string `json:"ua,omitempty" doc:"User-Agent override for fetches"`
	EpgURL    string `json:"epg,omitempty" doc:"Explicit XMLTV guide URL"`
	Disabled  *bool  `json:"disabled,omitempty" doc:"Exclude from refreshes and listings"`
}

// ToModel converts the request to a live source model.
func (r *SaveLiveSourceRequest) ToModel() *models.LiveSource {
	return &models.LiveSource{
		Key:       r.Key,
		Name:      r.Name,
		URL:       r.URL,
		UserAgent: r.UserAgent,
		EpgURL:    r.EpgURL,
		Disabled:  r.Disabled,
	}
}
