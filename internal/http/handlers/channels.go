package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/misttv/misttv/internal/live"
	"github.com/misttv/misttv/internal/models"
	"github.com/misttv/misttv/internal/service"
)

// ChannelHandler handles channel data endpoints: the cached channel list with
// its guide, and the channel-edit overlay.
type ChannelHandler struct {
	liveService *service.LiveService
}

// NewChannelHandler creates a channel handler.
func NewChannelHandler(liveService *service.LiveService) *ChannelHandler {
	return &ChannelHandler{liveService: liveService}
}

// Register registers the channel routes with the API.
func (h *ChannelHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getLiveChannels",
		Method:      "GET",
		Path:        "/api/v1/live/sources/{key}/channels",
		Summary:     "Get channels",
		Description: "Returns the channel list and guide for a live source, refreshing on a cache miss",
		Tags:        []string{"Channels"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "saveChannelEdits",
		Method:      "PUT",
		Path:        "/api/v1/live/sources/{key}/channels",
		Summary:     "Save channel edits",
		Description: "Stores an edited channel list that overrides parsed channels on every read",
		Tags:        []string{"Channels"},
	}, h.SaveEdits)

	huma.Register(api, huma.Operation{
		OperationID: "clearChannelEdits",
		Method:      "DELETE",
		Path:        "/api/v1/live/sources/{key}/channels",
		Summary:     "Clear channel edits",
		Description: "Removes the stored channel-edit overlay for a live source",
		Tags:        []string{"Channels"},
	}, h.ClearEdits)
}

// GetChannelsInput is the input for getting channels.
type GetChannelsInput struct {
	Key string `path:"key" doc:"Live source key"`
}

// GetChannelsOutput is the output for getting channels.
type GetChannelsOutput struct {
	Body models.LiveChannels
}

// Get returns the channel data for a live source.
func (h *ChannelHandler) Get(ctx context.Context, input *GetChannelsInput) (*GetChannelsOutput, error) {
	data, err := h.liveService.Channels(ctx, input.Key)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSourceNotFound):
			return nil, huma.Error404NotFound(fmt.Sprintf("live source %q not found", input.Key))
		case errors.Is(err, live.ErrStoredPlaylistMissing):
			return nil, huma.Error404NotFound("stored playlist not found for this source")
		case errors.Is(err, live.ErrFetchFailed):
			return nil, huma.Error502BadGateway("playlist fetch failed", err)
		}
		return nil, huma.Error500InternalServerError("failed to get channels", err)
	}
	return &GetChannelsOutput{Body: *data}, nil
}

// SaveChannelEditsInput is the input for saving channel edits.
type SaveChannelEditsInput struct {
	Key  string `path:"key" doc:"Live source key"`
	Body struct {
		Channels []models.Channel `json:"channels" doc:"Edited channel list replacing the parsed channels"`
	}
}

// SaveChannelEditsOutput is the output for saving channel edits.
type SaveChannelEditsOutput struct {
	Body struct {
		Saved         bool `json:"saved"`
		ChannelNumber int  `json:"channelNumber"`
	}
}

// SaveEdits stores the channel-edit overlay.
func (h *ChannelHandler) SaveEdits(ctx context.Context, input *SaveChannelEditsInput) (*SaveChannelEditsOutput, error) {
	if err := h.liveService.SaveChannelEdits(ctx, input.Key, input.Body.Channels); err != nil {
		if errors.Is(err, service.ErrSourceNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("live source %q not found", input.Key))
		}
		return nil, huma.Error500InternalServerError("failed to save channel edits", err)
	}

	resp := &SaveChannelEditsOutput{}
	resp.Body.Saved = true
	resp.Body.ChannelNumber = models.CountEnabled(input.Body.Channels)
	return resp, nil
}

// ClearChannelEditsInput is the input for clearing channel edits.
type ClearChannelEditsInput struct {
	Key string `path:"key" doc:"Live source key"`
}

// ClearChannelEditsOutput is the output for clearing channel edits.
type ClearChannelEditsOutput struct {
	Body struct {
		Cleared bool `json:"cleared"`
	}
}

// ClearEdits removes the channel-edit overlay.
func (h *ChannelHandler) ClearEdits(ctx context.Context, input *ClearChannelEditsInput) (*ClearChannelEditsOutput, error) {
	if err := h.liveService.ClearChannelEdits(ctx, input.Key); err != nil {
		return nil, huma.Error500InternalServerError("failed to clear channel edits", err)
	}
	resp := &ClearChannelEditsOutput{}
	resp.Body.Cleared = true
	return resp, nil
}
