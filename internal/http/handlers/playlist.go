package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/misttv/misttv/internal/service"
)

// PlaylistHandler handles stored playlist bodies. The GET route doubles as
// the durable-store pointer target: a live source whose URL is
// /api/live/m3u?key=xyz resolves here.
type PlaylistHandler struct {
	liveService *service.LiveService
	logger      *slog.Logger
}

// NewPlaylistHandler creates a playlist handler.
func NewPlaylistHandler(liveService *service.LiveService, logger *slog.Logger) *PlaylistHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaylistHandler{liveService: liveService, logger: logger}
}

// Register registers the playlist upload route with the API.
func (h *PlaylistHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "storeLivePlaylist",
		Method:      "PUT",
		Path:        "/api/v1/live/m3u/{key}",
		Summary:     "Store playlist body",
		Description: "Stores a raw M3U body; sources pointing at /api/live/m3u?key=... read it from here",
		Tags:        []string{"Playlists"},
	}, h.Store)
}

// RegisterRaw registers the raw playlist route on the router. It serves
// text/plain M3U, outside the JSON API.
func (h *PlaylistHandler) RegisterRaw(router *chi.Mux) {
	router.Get("/api/live/m3u", h.serveRaw)
}

// StorePlaylistInput is the input for storing a playlist body.
type StorePlaylistInput struct {
	Key     string `path:"key" doc:"Store key"`
	RawBody []byte `contentType:"text/plain" doc:"Raw M3U playlist body"`
}

// StorePlaylistOutput is the output for storing a playlist body.
type StorePlaylistOutput struct {
	Body struct {
		Key    string `json:"key"`
		Stored bool   `json:"stored"`
	}
}

// Store saves a raw playlist body in the durable store.
func (h *PlaylistHandler) Store(ctx context.Context, input *StorePlaylistInput) (*StorePlaylistOutput, error) {
	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("playlist body is empty")
	}
	if err := h.liveService.StorePlaylist(ctx, input.Key, string(input.RawBody)); err != nil {
		return nil, huma.Error500InternalServerError("failed to store playlist", err)
	}

	resp := &StorePlaylistOutput{}
	resp.Body.Key = input.Key
	resp.Body.Stored = true
	return resp, nil
}

func (h *PlaylistHandler) serveRaw(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "missing key parameter", http.StatusBadRequest)
		return
	}

	content, ok, err := h.liveService.StoredPlaylist(r.Context(), key)
	if err != nil {
		h.logger.Error("stored playlist read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		http.Error(w, "failed to read stored playlist", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "stored playlist not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "audio/x-mpegurl; charset=utf-8")
	_, _ = w.Write([]byte(content))
}
