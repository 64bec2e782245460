package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/haulflow/pkg/models"
	"github.com/ekaya-inc/haulflow/pkg/services"
)

// ProfilesHandler handles pipeline profile HTTP requests.
type ProfilesHandler struct {
	profileService services.ProfileService
	maxBodyBytes   int64
	logger         *zap.Logger
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(profileService services.ProfileService, maxBodyBytes int64, logger *zap.Logger) *ProfilesHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &ProfilesHandler{
		profileService: profileService,
		maxBodyBytes:   maxBodyBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers the profile routes. Every route needs a database scope.
func (h *ProfilesHandler) RegisterRoutes(mux *http.ServeMux, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/profiles", scope(h.List))
	mux.HandleFunc("POST /api/profiles", scope(h.Create))
	mux.HandleFunc("GET /api/profiles/active", scope(h.GetActive))
	mux.HandleFunc("POST /api/profiles/import", scope(h.Import))
	mux.HandleFunc("GET /api/profiles/{id}", scope(h.Get))
	mux.HandleFunc("PUT /api/profiles/{id}", scope(h.Update))
	mux.HandleFunc("DELETE /api/profiles/{id}", scope(h.Delete))
	mux.HandleFunc("POST /api/profiles/{id}/activate", scope(h.Activate))
	mux.HandleFunc("GET /api/profiles/{id}/export", scope(h.Export))
}

// List handles GET /api/profiles
func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profileService.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "list_profiles_failed", "Failed to list profiles")
		return
	}
	writeData(w, http.StatusOK, profiles, h.logger)
}

// Get handles GET /api/profiles/{id}
func (h *ProfilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseProfileID(w, r, h.logger)
	if !ok {
		return
	}

	profile, err := h.profileService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "get_profile_failed", "Failed to get profile")
		return
	}
	writeData(w, http.StatusOK, profile, h.logger)
}

// GetActive handles GET /api/profiles/active
func (h *ProfilesHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.GetActive(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "get_active_profile_failed", "Failed to get active profile")
		return
	}
	writeData(w, http.StatusOK, profile, h.logger)
}

// Create handles POST /api/profiles
func (h *ProfilesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var profile models.Profile
	if !decodeBody(w, r, h.maxBodyBytes, &profile, h.logger) {
		return
	}

	created, err := h.profileService.Create(r.Context(), &profile)
	if err != nil {
		writeServiceError(w, h.logger, err, "create_profile_failed", "Failed to create profile")
		return
	}
	writeData(w, http.StatusCreated, created, h.logger)
}

// Update handles PUT /api/profiles/{id}
func (h *ProfilesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseProfileID(w, r, h.logger)
	if !ok {
		return
	}

	var profile models.Profile
	if !decodeBody(w, r, h.maxBodyBytes, &profile, h.logger) {
		return
	}

	updated, err := h.profileService.Update(r.Context(), id, &profile)
	if err != nil {
		writeServiceError(w, h.logger, err, "update_profile_failed", "Failed to update profile")
		return
	}
	writeData(w, http.StatusOK, updated, h.logger)
}

// Delete handles DELETE /api/profiles/{id}
func (h *ProfilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseProfileID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.profileService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err, "delete_profile_failed", "Failed to delete profile")
		return
	}

	response := ApiResponse{Success: true, Message: "Profile deleted"}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Activate handles POST /api/profiles/{id}/activate
func (h *ProfilesHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseProfileID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.profileService.Activate(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err, "activate_profile_failed", "Failed to activate profile")
		return
	}

	response := ApiResponse{Success: true, Message: "Profile activated"}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Export handles GET /api/profiles/{id}/export
// Returns the profile as a YAML attachment.
func (h *ProfilesHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseProfileID(w, r, h.logger)
	if !ok {
		return
	}

	data, err := h.profileService.ExportYAML(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "export_profile_failed", "Failed to export profile")
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "profile-"+id.String()+".yaml"))
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write export", zap.Error(err))
	}
}

// Import handles POST /api/profiles/import
// The body is raw YAML as produced by Export.
func (h *ProfilesHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		status, code, message := http.StatusBadRequest, "invalid_request", "Failed to read request body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status, code, message = http.StatusRequestEntityTooLarge, "request_too_large", "Request body too large"
		}
		if err := ErrorResponse(w, status, code, message); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	profile, err := h.profileService.ImportYAML(r.Context(), body)
	if err != nil {
		writeServiceError(w, h.logger, err, "import_profile_failed", "Failed to import profile")
		return
	}
	writeData(w, http.StatusCreated, profile, h.logger)
}
