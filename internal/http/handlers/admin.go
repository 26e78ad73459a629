package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/misttv/misttv/internal/models"
	"github.com/misttv/misttv/internal/service"
)

// AdminHandler handles admin configuration endpoints.
type AdminHandler struct {
	adminService *service.AdminService
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// Register registers the admin routes with the API.
func (h *AdminHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getAdminConfig",
		Method:      "GET",
		Path:        "/api/v1/admin/config",
		Summary:     "Get admin config",
		Description: "Returns the persisted admin configuration",
		Tags:        []string{"Admin"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "updateAdminConfigFile",
		Method:      "PUT",
		Path:        "/api/v1/admin/config/file",
		Summary:     "Update config file",
		Description: "Replaces the raw config blob (JSON, M3U, or line records) and reconciles it into the admin configuration",
		Tags:        []string{"Admin"},
	}, h.UpdateConfigFile)

	huma.Register(api, huma.Operation{
		OperationID: "reconcileAdminConfig",
		Method:      "POST",
		Path:        "/api/v1/admin/config/reconcile",
		Summary:     "Reconcile admin config",
		Description: "Re-runs the merge and self-check against the stored config blob",
		Tags:        []string{"Admin"},
	}, h.Reconcile)
}

// GetAdminConfigInput is the input for getting the admin config.
type GetAdminConfigInput struct{}

// GetAdminConfigOutput is the output for getting the admin config.
type GetAdminConfigOutput struct {
	Body models.AdminConfig
}

// Get returns the persisted admin configuration.
func (h *AdminHandler) Get(ctx context.Context, _ *GetAdminConfigInput) (*GetAdminConfigOutput, error) {
	ac, err := h.adminService.Load(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load admin config", err)
	}
	return &GetAdminConfigOutput{Body: *ac}, nil
}

// UpdateConfigFileInput is the input for updating the config file blob.
type UpdateConfigFileInput struct {
	RawBody []byte `contentType:"text/plain" doc:"Raw config blob: JSON, M3U, or line-oriented records"`
}

// UpdateConfigFileOutput is the output for updating the config file blob.
type UpdateConfigFileOutput struct {
	Body models.AdminConfig
}

// UpdateConfigFile replaces the config blob and reconciles.
func (h *AdminHandler) UpdateConfigFile(ctx context.Context, input *UpdateConfigFileInput) (*UpdateConfigFileOutput, error) {
	ac, err := h.adminService.UpdateConfigFile(ctx, string(input.RawBody))
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to reconcile config file", err)
	}
	return &UpdateConfigFileOutput{Body: *ac}, nil
}

// ReconcileAdminConfigInput is the input for reconciling the admin config.
type ReconcileAdminConfigInput struct{}

// ReconcileAdminConfigOutput is the output for reconciling the admin config.
type ReconcileAdminConfigOutput struct {
	Body models.AdminConfig
}

// Reconcile re-runs the merge against the stored blob.
func (h *AdminHandler) Reconcile(ctx context.Context, _ *ReconcileAdminConfigInput) (*ReconcileAdminConfigOutput, error) {
	ac, err := h.adminService.Load(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load admin config", err)
	}
	if err := h.adminService.Reconcile(ctx, ac); err != nil {
		return nil, huma.Error500InternalServerError("failed to reconcile admin config", err)
	}
	return &ReconcileAdminConfigOutput{Body: *ac}, nil
}
