package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/haulflow/pkg/models"
)

// EntitySchemaResponse describes one entity's target schema.
type EntitySchemaResponse struct {
	Entity models.EntityKind        `json:"entity"`
	Fields []models.FieldDefinition `json:"fields"`
	Enums  map[string][]string      `json:"enums"`
	Dedup  models.DedupKey          `json:"dedup_key"`
}

// SchemaResponse describes the target model the pipeline maps onto.
type SchemaResponse struct {
	Entities     []EntitySchemaResponse `json:"entities"`
	DefaultJoins []models.JoinConfig    `json:"default_joins"`
}

// SchemaHandler serves the fixed target schemas.
type SchemaHandler struct {
	logger *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/schema", h.GetSchema)
}

// GetSchema handles GET /api/schema
// Returns every entity's fields, canonical enum values and default dedup key.
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	entities := make([]EntitySchemaResponse, 0, len(models.AllEntities()))
	for _, kind := range models.AllEntities() {
		enums := models.EnumFieldsFor(kind)
		if enums == nil {
			enums = map[string][]string{}
		}
		entities = append(entities, EntitySchemaResponse{
			Entity: kind,
			Fields: models.TargetSchema(kind),
			Enums:  enums,
			Dedup:  models.DefaultDedupKey(kind),
		})
	}

	writeData(w, http.StatusOK, SchemaResponse{
		Entities:     entities,
		DefaultJoins: models.DefaultJoins(),
	}, h.logger)
}
