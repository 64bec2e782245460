package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/haulflow/pkg/models"
	"github.com/ekaya-inc/haulflow/pkg/services"
)

// SuggestMappingsRequest asks for column or enum mapping suggestions.
// With Headers it suggests target field -> source column; with Field and Values it
// suggests raw value -> canonical value for one enum field.
type SuggestMappingsRequest struct {
	Entity  models.EntityKind `json:"entity"`
	Headers []string          `json:"headers,omitempty"`
	Field   string            `json:"field,omitempty"`
	Values  []string          `json:"values,omitempty"`
}

// SuggestMappingsResponse holds the suggested mapping and the entries left unmatched.
type SuggestMappingsResponse struct {
	Entity    models.EntityKind `json:"entity"`
	Field     string            `json:"field,omitempty"`
	Mapping   map[string]string `json:"mapping"`
	Unmatched []string          `json:"unmatched"`
}

// MappingsHandler serves mapping suggestions for uploaded headers and enum values.
type MappingsHandler struct {
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewMappingsHandler creates a new mappings handler.
func NewMappingsHandler(maxBodyBytes int64, logger *zap.Logger) *MappingsHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &MappingsHandler{maxBodyBytes: maxBodyBytes, logger: logger}
}

// RegisterRoutes registers the mapping routes on the given mux.
func (h *MappingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/mappings/suggest", h.Suggest)
}

// Suggest handles POST /api/mappings/suggest
func (h *MappingsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestMappingsRequest
	if !decodeBody(w, r, h.maxBodyBytes, &req, h.logger) {
		return
	}

	if !models.IsValidEntity(req.Entity) {
		h.badRequest(w, "invalid_entity", "entity must be one of quote, load, driver_vehicle")
		return
	}

	var resp SuggestMappingsResponse
	switch {
	case req.Field != "":
		if _, ok := models.EnumFieldsFor(req.Entity)[req.Field]; !ok {
			h.badRequest(w, "invalid_field", "field is not an enum field of "+string(req.Entity))
			return
		}
		mapping := services.SuggestEnumMappings(req.Entity, req.Field, req.Values)
		resp = SuggestMappingsResponse{
			Entity:    req.Entity,
			Field:     req.Field,
			Mapping:   mapping,
			Unmatched: unmatchedKeys(req.Values, mapping),
		}
	case len(req.Headers) > 0:
		mapping := services.SuggestMappings(req.Entity, req.Headers)
		used := make(map[string]string, len(mapping))
		for _, source := range mapping {
			used[source] = source
		}
		resp = SuggestMappingsResponse{
			Entity:    req.Entity,
			Mapping:   mapping,
			Unmatched: unmatchedKeys(req.Headers, used),
		}
	default:
		h.badRequest(w, "invalid_request", "headers or field and values are required")
		return
	}

	h.logger.Debug("Suggested mappings",
		zap.String("entity", string(req.Entity)),
		zap.String("field", req.Field),
		zap.Int("matched", len(resp.Mapping)),
		zap.Int("unmatched", len(resp.Unmatched)))

	writeData(w, http.StatusOK, resp, h.logger)
}

func (h *MappingsHandler) badRequest(w http.ResponseWriter, code, message string) {
	if err := ErrorResponse(w, http.StatusBadRequest, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// unmatchedKeys returns the distinct non-blank entries of values with no key in matched, in order.
func unmatchedKeys(values []string, matched map[string]string) []string {
	out := make([]string, 0)
	seen := make(map[string]bool)
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := matched[v]; ok || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
