// Package handlers provides HTTP API handlers for misttv.
package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/misttv/misttv/internal/database"
)

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	version   string
	startTime time.Time
	db        *database.DB
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(version string, db *database.DB) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		db:        db,
	}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status        string            `json:"status"`
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	UptimeSeconds float64           `json:"uptimeSeconds"`
	Checks        map[string]string `json:"checks"`
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(ctx context.Context, _ *HealthInput) (*HealthOutput, error) {
	now := time.Now()

	dbStatus := "ok"
	status := "healthy"
	if h.db == nil {
		dbStatus = "unknown"
	} else if err := h.db.Ping(ctx); err != nil {
		dbStatus = "error"
		status = "degraded"
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:        status,
			Timestamp:     now.UTC().Format(time.RFC3339),
			Version:       h.version,
			UptimeSeconds: now.Sub(h.startTime).Seconds(),
			Checks: map[string]string{
				"database": dbStatus,
			},
		},
	}, nil
}
