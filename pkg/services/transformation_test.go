package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/haulflow/pkg/models"
)

func TestTransformRows(t *testing.T) {
	rows := []models.Row{
		{"quote_id": " q1 ", "quoted_price": "1234.56£", "date_created": "15/01/2025", "quoted_by": "jane DOE"},
		{"quote_id": "q2", "quoted_price": "n/a", "date_created": "soon", "quoted_by": nil},
	}
	config := map[string]models.TransformRule{
		"quote_id":     {Type: models.TransformUUID},
		"quoted_price": {Type: models.TransformNumber},
		"date_created": {Type: models.TransformDate},
		"quoted_by":    {Type: models.TransformPersonName},
		"distance_km":  {Type: models.TransformNumber},
	}

	result := TransformRows(rows, models.EntityQuote, config, nil)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, models.Row{
		"quote_id": "q1", "quoted_price": "1234.56", "date_created": "2025-01-15", "quoted_by": "Jane Doe",
	}, result.Rows[0])

	assert.Nil(t, result.Rows[1]["quoted_price"])
	assert.Nil(t, result.Rows[1]["date_created"])
	assert.Nil(t, result.Rows[1]["quoted_by"])

	_, created := result.Rows[0]["distance_km"]
	assert.False(t, created, "absent fields must not be created")

	// Blank inputs are not counted as parse failures.
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "quote.date_created: 1 value(s)")
	assert.Contains(t, result.Warnings[1], "quote.quoted_price: 1 value(s)")
}

func TestTransformRows_DoesNotMutateInput(t *testing.T) {
	rows := []models.Row{{"quoted_price": "£10"}}

	TransformRows(rows, models.EntityQuote, map[string]models.TransformRule{
		"quoted_price": {Type: models.TransformNumber},
	}, nil)

	assert.Equal(t, "£10", rows[0]["quoted_price"])
}

func TestTransformRows_LocationReferenceLists(t *testing.T) {
	rows := []models.Row{{"collection_city": "Springfeld", "delivery_city": "Birmigham"}}
	refs := &ReferenceLists{Cities: []string{"Springfield"}}

	t.Run("configured lists replace built-in", func(t *testing.T) {
		result := TransformRows(rows, models.EntityLoad, map[string]models.TransformRule{
			"collection_city": {Type: models.TransformLocationCity},
		}, refs)
		assert.Equal(t, "Springfield", result.Rows[0]["collection_city"])
	})

	t.Run("rule list wins over configured list", func(t *testing.T) {
		result := TransformRows(rows, models.EntityLoad, map[string]models.TransformRule{
			"delivery_city": {Type: models.TransformLocationCity, ReferenceList: []string{"Birmingham"}},
		}, refs)
		assert.Equal(t, "Birmingham", result.Rows[0]["delivery_city"])
	})

	t.Run("nil lists use built-in", func(t *testing.T) {
		result := TransformRows(rows, models.EntityLoad, map[string]models.TransformRule{
			"delivery_city": {Type: models.TransformLocationCity},
		}, nil)
		assert.Equal(t, "Birmingham", result.Rows[0]["delivery_city"])
	})
}

func TestDefaultTransformConfig(t *testing.T) {
	quote := DefaultTransformConfig(models.EntityQuote)
	assert.Equal(t, models.TransformUUID, quote["quote_id"].Type)
	assert.Equal(t, models.TransformNumber, quote["quoted_price"].Type)
	assert.Equal(t, models.TransformDate, quote["date_created"].Type)
	assert.Equal(t, models.TransformDateTime, quote["updated_at"].Type)
	assert.Equal(t, models.TransformPersonName, quote["quoted_by"].Type)
	_, hasStatus := quote["status"]
	assert.False(t, hasStatus, "enum fields are left to the enum normalizer")

	load := DefaultTransformConfig(models.EntityLoad)
	assert.Equal(t, models.TransformLocationCity, load["collection_city"].Type)
	assert.Equal(t, models.TransformLocationTown, load["delivery_town"].Type)
	assert.Equal(t, models.TransformPersonName, load["load_poster_name"].Type)

	dv := DefaultTransformConfig(models.EntityDriverVehicle)
	assert.Equal(t, models.TransformEmail, dv["driver_email"].Type)
	assert.Equal(t, models.TransformPhone, dv["driver_phone"].Type)
	assert.Equal(t, models.TransformRegistration, dv["vehicle_registration"].Type)
	assert.Equal(t, models.TransformInteger, dv["capacity_kg"].Type)
}
