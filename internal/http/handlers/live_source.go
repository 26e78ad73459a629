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

// LiveSourceHandler handles live source API endpoints.
type LiveSourceHandler struct {
	liveService *service.LiveService
}

// NewLiveSourceHandler creates a live source handler.
func NewLiveSourceHandler(liveService *service.LiveService) *LiveSourceHandler {
	return &LiveSourceHandler{liveService: liveService}
}

// Register registers the live source routes with the API.
func (h *LiveSourceHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listLiveSources",
		Method:      "GET",
		Path:        "/api/v1/live/sources",
		Summary:     "List live sources",
		Description: "Returns all configured live sources",
		Tags:        []string{"Live Sources"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getLiveSource",
		Method:      "GET",
		Path:        "/api/v1/live/sources/{key}",
		Summary:     "Get live source",
		Description: "Returns a live source by key",
		Tags:        []string{"Live Sources"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "createLiveSource",
		Method:      "POST",
		Path:        "/api/v1/live/sources",
		Summary:     "Create live source",
		Description: "Creates a new live source and refreshes its channels",
		Tags:        []string{"Live Sources"},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "updateLiveSource",
		Method:      "PUT",
		Path:        "/api/v1/live/sources/{key}",
		Summary:     "Update live source",
		Description: "Updates an existing live source",
		Tags:        []string{"Live Sources"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID: "deleteLiveSource",
		Method:      "DELETE",
		Path:        "/api/v1/live/sources/{key}",
		Summary:     "Delete live source",
		Description: "Deletes a live source and its cached and stored data",
		Tags:        []string{"Live Sources"},
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "refreshLiveSource",
		Method:      "POST",
		Path:        "/api/v1/live/sources/{key}/refresh",
		Summary:     "Refresh live source",
		Description: "Refetches the source playlist and rebuilds its channel cache",
		Tags:        []string{"Live Sources"},
	}, h.Refresh)

	huma.Register(api, huma.Operation{
		OperationID: "refreshAllLiveSources",
		Method:      "POST",
		Path:        "/api/v1/live/refresh",
		Summary:     "Refresh all live sources",
		Description: "Refreshes every enabled live source",
		Tags:        []string{"Live Sources"},
	}, h.RefreshAll)
}

// ListLiveSourcesInput is the input for listing live sources.
type ListLiveSourcesInput struct{}

// ListLiveSourcesOutput is the output for listing live sources.
type ListLiveSourcesOutput struct {
	Body struct {
		Sources []LiveSourceResponse `json:"sources"`
	}
}

// List returns all live sources.
func (h *LiveSourceHandler) List(ctx context.Context, _ *ListLiveSourcesInput) (*ListLiveSourcesOutput, error) {
	sources, err := h.liveService.ListSources(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list live sources", err)
	}

	resp := &ListLiveSourcesOutput{}
	resp.Body.Sources = make([]LiveSourceResponse, 0, len(sources))
	for _, s := range sources {
		resp.Body.Sources = append(resp.Body.Sources, LiveSourceFromModel(s))
	}
	return resp, nil
}

// GetLiveSourceInput is the input for getting a live source.
type GetLiveSourceInput struct {
	Key string `path:"key" doc:"Live source key"`
}

// GetLiveSourceOutput is the output for getting a live source.
type GetLiveSourceOutput struct {
	Body LiveSourceResponse
}

// Get returns a live source by key.
func (h *LiveSourceHandler) Get(ctx context.Context, input *GetLiveSourceInput) (*GetLiveSourceOutput, error) {
	src, err := h.liveService.GetSource(ctx, input.Key)
	if err != nil {
		if errors.Is(err, service.ErrSourceNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("live source %q not found", input.Key))
		}
		return nil, huma.Error500InternalServerError("failed to get live source", err)
	}
	return &GetLiveSourceOutput{Body: LiveSourceFromModel(src)}, nil
}

// CreateLiveSourceInput is the input for creating a live source.
type CreateLiveSourceInput struct {
	Body SaveLiveSourceRequest
}

// CreateLiveSourceOutput is the output for creating a live source.
type CreateLiveSourceOutput struct {
	Body LiveSourceResponse
}

// Create creates a new live source.
func (h *LiveSourceHandler) Create(ctx context.Context, input *CreateLiveSourceInput) (*CreateLiveSourceOutput, error) {
	src := input.Body.ToModel()
	src.From = models.ProvenanceCustom

	if err := h.liveService.CreateSource(ctx, src); err != nil {
		switch {
		case errors.Is(err, service.ErrSourceExists):
			return nil, huma.Error409Conflict(fmt.Sprintf("live source %q already exists", src.Key))
		case errors.Is(err, models.ErrKeyRequired),
			errors.Is(err, models.ErrNameRequired),
			errors.Is(err, models.ErrURLRequired),
			errors.Is(err, models.ErrInvalidURL):
			return nil, huma.Error400BadRequest(err.Error())
		}
		return nil, huma.Error500InternalServerError("failed to create live source", err)
	}
	return &CreateLiveSourceOutput{Body: LiveSourceFromModel(src)}, nil
}

// UpdateLiveSourceInput is the input for updating a live source.
type UpdateLiveSourceInput struct {
	Key  string `path:"key" doc:"Live source key"`
	Body SaveLiveSourceRequest
}

// UpdateLiveSourceOutput is the output for updating a live source.
type UpdateLiveSourceOutput struct {
	Body LiveSourceResponse
}

// Update updates an existing live source.
func (h *LiveSourceHandler) Update(ctx context.Context, input *UpdateLiveSourceInput) (*UpdateLiveSourceOutput, error) {
	src := input.Body.ToModel()
	src.Key = input.Key

	if err := h.liveService.UpdateSource(ctx, src); err != nil {
		switch {
		case errors.Is(err, service.ErrSourceNotFound):
			return nil, huma.Error404NotFound(fmt.Sprintf("live source %q not found", input.Key))
		case errors.Is(err, models.ErrNameRequired),
			errors.Is(err, models.ErrURLRequired),
			errors.Is(err, models.ErrInvalidURL):
			return nil, huma.Error400BadRequest(err.Error())
		}
		return nil, huma.Error500InternalServerError("failed to update live source", err)
	}

	updated, err := h.liveService.GetSource(ctx, input.Key)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to reload live source", err)
	}
	return &UpdateLiveSourceOutput{Body: LiveSourceFromModel(updated)}, nil
}

// DeleteLiveSourceInput is the input for deleting a live source.
type DeleteLiveSourceInput struct {
	Key string `path:"key" doc:"Live source key"`
}

// DeleteLiveSourceOutput is the output for deleting a live source.
type DeleteLiveSourceOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

// Delete deletes a live source.
func (h *LiveSourceHandler) Delete(ctx context.Context, input *DeleteLiveSourceInput) (*DeleteLiveSourceOutput, error) {
	if err := h.liveService.DeleteSource(ctx, input.Key); err != nil {
		if errors.Is(err, service.ErrSourceNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("live source %q not found", input.Key))
		}
		return nil, huma.Error500InternalServerError("failed to delete live source", err)
	}

	resp := &DeleteLiveSourceOutput{}
	resp.Body.Deleted = true
	return resp, nil
}

// RefreshLiveSourceInput is the input for refreshing one live source.
type RefreshLiveSourceInput struct {
	Key string `path:"key" doc:"Live source key"`
}

// RefreshLiveSourceOutput is the output for refreshing one live source.
type RefreshLiveSourceOutput struct {
	Body struct {
		Key           string `json:"key"`
		ChannelNumber int    `json:"channelNumber"`
	}
}

// Refresh refreshes one live source.
func (h *LiveSourceHandler) Refresh(ctx context.Context, input *RefreshLiveSourceInput) (*RefreshLiveSourceOutput, error) {
	count, err := h.liveService.Refresh(ctx, input.Key)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSourceNotFound):
			return nil, huma.Error404NotFound(fmt.Sprintf("live source %q not found", input.Key))
		case errors.Is(err, live.ErrStoredPlaylistMissing):
			return nil, huma.Error404NotFound("stored playlist not found for this source")
		case errors.Is(err, live.ErrFetchFailed):
			return nil, huma.Error502BadGateway("playlist fetch failed", err)
		}
		return nil, huma.Error500InternalServerError("failed to refresh live source", err)
	}

	resp := &RefreshLiveSourceOutput{}
	resp.Body.Key = input.Key
	resp.Body.ChannelNumber = count
	return resp, nil
}

// RefreshAllInput is the input for refreshing all live sources.
type RefreshAllInput struct{}

// RefreshAllOutput is the output for refreshing all live sources.
type RefreshAllOutput struct {
	Body struct {
		Completed bool `json:"completed"`
	}
}

// RefreshAll refreshes every enabled live source.
func (h *LiveSourceHandler) RefreshAll(ctx context.Context, _ *RefreshAllInput) (*RefreshAllOutput, error) {
	if err := h.liveService.RefreshAll(ctx); err != nil {
		return nil, huma.Error502BadGateway("one or more sources failed to refresh", err)
	}
	resp := &RefreshAllOutput{}
	resp.Body.Completed = true
	return resp, nil
}
