package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/haulflow/pkg/logging"
	"github.com/ekaya-inc/haulflow/pkg/models"
	"github.com/ekaya-inc/haulflow/pkg/services"
)

// InterpretFilterRequest holds free-text filter rule and the flat columns it may name.
// Without columns the rule is resolved against every target schema field.
type InterpretFilterRequest struct {
	Rule    string   `json:"rule"`
	Columns []string `json:"columns,omitempty"`
}

// FiltersHandler turns free-text filter rules into structured filters.
type FiltersHandler struct {
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewFiltersHandler creates a new filters handler.
func NewFiltersHandler(maxBodyBytes int64, logger *zap.Logger) *FiltersHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &FiltersHandler{maxBodyBytes: maxBodyBytes, logger: logger}
}

// RegisterRoutes registers the filter routes on the given mux.
func (h *FiltersHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/filters/interpret", h.Interpret)
}

// Interpret handles POST /api/filters/interpret
func (h *FiltersHandler) Interpret(w http.ResponseWriter, r *http.Request) {
	var req InterpretFilterRequest
	if !decodeBody(w, r, h.maxBodyBytes, &req, h.logger) {
		return
	}

	if strings.TrimSpace(req.Rule) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "rule is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	columns := req.Columns
	if len(columns) == 0 {
		columns = allFlatColumns()
	}

	structured, err := services.InterpretFilterRule(req.Rule, columns)
	if err != nil {
		h.logger.Info("Filter rule not interpreted",
			zap.String("rule", logging.SanitizeRule(req.Rule)),
			zap.Error(err))
		writeServiceError(w, h.logger, err, "interpret_filter_failed", "Failed to interpret filter rule")
		return
	}

	h.logger.Debug("Interpreted filter rule",
		zap.String("rule", logging.SanitizeRule(req.Rule)),
		zap.String("field", structured.Field),
		zap.String("op", string(structured.Op)))

	writeData(w, http.StatusOK, structured, h.logger)
}

// allFlatColumns lists every column a joined row can carry.
func allFlatColumns() []string {
	seen := make(map[string]bool)
	var columns []string
	add := func(names ...string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				columns = append(columns, n)
			}
		}
	}
	add(models.TargetFieldNames(models.EntityQuote)...)
	add(models.FieldQuoteStatus, models.FieldLoadStatus)
	add(models.TargetFieldNames(models.EntityLoad)...)
	add(models.TargetFieldNames(models.EntityDriverVehicle)...)
	return columns
}
