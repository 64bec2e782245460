package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/haulflow/pkg/models"
)

func TestSchemaHandler_GetSchema(t *testing.T) {
	handler := NewSchemaHandler(zap.NewNop())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    SchemaResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.True(t, resp.Success)
	require.Len(t, resp.Data.Entities, 3)
	assert.Equal(t, models.EntityQuote, resp.Data.Entities[0].Entity)
	assert.Equal(t, models.QuoteStatuses, resp.Data.Entities[0].Enums[models.FieldStatus])
	assert.Equal(t, models.FieldQuoteID, resp.Data.Entities[0].Fields[0].Name)
	assert.Equal(t, models.FieldVehicleID, resp.Data.Entities[2].Dedup.IDField)
	assert.Len(t, resp.Data.DefaultJoins, 2)
}
