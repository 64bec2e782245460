package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/haulflow/pkg/middleware"
	"github.com/ekaya-inc/haulflow/pkg/models"
	"github.com/ekaya-inc/haulflow/pkg/services"
)

// RunValidationRequest carries the three source tables and the profile to run them
// through. Without a profile ID the active profile is used.
type RunValidationRequest struct {
	ProfileID *uuid.UUID               `json:"profile_id,omitempty"`
	Data      models.SessionData       `json:"data"`
	Options   models.ValidationOptions `json:"options"`
}

// ValidationHandler runs the validation pipeline over posted rows.
type ValidationHandler struct {
	validationService services.ValidationService
	maxBodyBytes      int64
	logger            *zap.Logger
}

// NewValidationHandler creates a new validation handler.
func NewValidationHandler(validationService services.ValidationService, maxBodyBytes int64, logger *zap.Logger) *ValidationHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &ValidationHandler{
		validationService: validationService,
		maxBodyBytes:      maxBodyBytes,
		logger:            logger,
	}
}

// RegisterRoutes registers the validation routes. The run needs a database scope to
// load its profile.
func (h *ValidationHandler) RegisterRoutes(mux *http.ServeMux, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/validation/run", scope(h.Run))
}

// Run handles POST /api/validation/run
func (h *ValidationHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunValidationRequest
	if !decodeBody(w, r, h.maxBodyBytes, &req, h.logger) {
		return
	}

	start := time.Now()
	var (
		summary *models.ValidationSummary
		err     error
	)
	if req.ProfileID != nil {
		summary, err = h.validationService.RunValidation(r.Context(), *req.ProfileID, req.Data, req.Options)
	} else {
		summary, err = h.validationService.RunActiveValidation(r.Context(), req.Data, req.Options)
	}
	if err != nil {
		writeServiceError(w, h.logger, err, "validation_failed", "Failed to run validation")
		return
	}

	h.logger.Info("Validation run complete",
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("run_id", summary.RunID.String()),
		zap.Int("quote_rows", len(req.Data.Quote.Rows)),
		zap.Int("load_rows", len(req.Data.Load.Rows)),
		zap.Int("driver_vehicle_rows", len(req.Data.DriverVehicle.Rows)),
		zap.Int("rows_successful", summary.RowsSuccessful),
		zap.Int("rows_dropped", summary.RowsDropped),
		zap.Bool("join_only", req.Options.JoinOnly),
		zap.Duration("duration", time.Since(start)))

	writeData(w, http.StatusOK, summary, h.logger)
}
