package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/haulflow/pkg/models"
)

func intPtr(v int) *int { return &v }

func structured(field string, op models.FilterOp, value any, typ models.FilterValueType) *models.StructuredFilter {
	return &models.StructuredFilter{Field: field, Op: op, Value: value, Type: typ}
}

func cityRows() []models.Row {
	return []models.Row{
		{"quote_id": "q1", "collection_city": "London", "delivery_city": "Leeds", "quoted_price": "1500", "status": "posted"},
		{"quote_id": "q2", "collection_city": "Bristol", "delivery_city": "London", "quoted_price": "250", "status": "cancelled"},
		{"quote_id": "q3", "collection_city": "Bristol", "delivery_city": "Leeds", "quoted_price": "800", "status": "posted"},
	}
}

func TestApplyFiltersWithRuleEffects_OrGroup(t *testing.T) {
	rules := []models.FilterRule{
		{ID: "r1", Type: models.FilterInclusion, Structured: &models.StructuredFilter{
			Field: "collection_city", Op: models.OpContains, Value: "london", OrGroup: intPtr(1),
		}},
		{ID: "r2", Type: models.FilterInclusion, Structured: &models.StructuredFilter{
			Field: "delivery_city", Op: models.OpContains, Value: "London", OrGroup: intPtr(1),
		}},
	}

	result := ApplyFiltersWithRuleEffects(cityRows(), rules)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "q1", result.Rows[0]["quote_id"])
	assert.Equal(t, "q2", result.Rows[1]["quote_id"])
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "q3", result.Excluded[0]["quote_id"])

	require.Len(t, result.Effects, 2)
	assert.Equal(t, models.RuleEffect{RuleID: "r1", Rule: "collection_city contains london", Before: 3, After: 1}, result.Effects[0])
	assert.Equal(t, 3, result.Effects[1].Before)
	assert.Equal(t, 1, result.Effects[1].After)
	assert.Empty(t, result.Skipped)
}

func TestApplyFiltersWithRuleEffects_GroupsCombineWithAnd(t *testing.T) {
	rules := []models.FilterRule{
		{ID: "price", Type: models.FilterInclusion, Structured: structured("quoted_price", models.OpGreaterEq, 500, models.FilterValueNumber)},
		{ID: "cancelled", Type: models.FilterExclusion, Structured: structured("status", models.OpEquals, "cancelled", models.FilterValueEnum)},
		{ID: "city", Type: models.FilterInclusion, Structured: structured("collection_city", models.OpEquals, "London", models.FilterValueString)},
	}

	result := ApplyFiltersWithRuleEffects(cityRows(), rules)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "q1", result.Rows[0]["quote_id"])

	// Rows stop at the first group they fail, so later groups see fewer rows.
	assert.Equal(t, 3, result.Effects[0].Before)
	assert.Equal(t, 2, result.Effects[0].After)
	assert.Equal(t, 2, result.Effects[1].Before)
	assert.Equal(t, 2, result.Effects[1].After)
	assert.Equal(t, 2, result.Effects[2].Before)
	assert.Equal(t, 1, result.Effects[2].After)
}

func TestApplyFilters_NoRulesKeepsEverything(t *testing.T) {
	rows := cityRows()
	assert.Equal(t, rows, ApplyFilters(rows, nil))
}

func TestApplyFilters_TextRulesInterpreted(t *testing.T) {
	rules := []models.FilterRule{
		{Type: models.FilterExclusion, Rule: "status is cancelled"},
		{Type: models.FilterInclusion, Rule: "quoted price > 500"},
	}

	kept := ApplyFilters(cityRows(), rules)

	require.Len(t, kept, 2)
	assert.Equal(t, "q1", kept[0]["quote_id"])
	assert.Equal(t, "q3", kept[1]["quote_id"])
}

func TestMatchFilter_BlankValues(t *testing.T) {
	row := models.Row{"driver_name": nil, "driver_email": "  "}

	tests := []struct {
		name   string
		filter *models.StructuredFilter
		want   bool
	}{
		{"is_empty on nil", structured("driver_name", models.OpIsEmpty, nil, ""), true},
		{"is_empty on whitespace", structured("driver_email", models.OpIsEmpty, nil, ""), true},
		{"is_empty on missing column", structured("vehicle_type", models.OpIsEmpty, nil, ""), true},
		{"is_not_empty on nil", structured("driver_name", models.OpIsNotEmpty, nil, ""), false},
		{"not_equals never matches blank", structured("driver_name", models.OpNotEquals, "Jane", models.FilterValueString), false},
		{"not_contains never matches blank", structured("driver_email", models.OpNotContains, "@", models.FilterValueString), false},
		{"gt never matches blank", structured("driver_name", models.OpGreater, 1, models.FilterValueNumber), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchFilter(row, tt.filter))
		})
	}
}

func TestMatchFilter_Operators(t *testing.T) {
	row := models.Row{
		"collection_city": "Milton Keynes",
		"quoted_price":    "1,234.50",
		"weight_kg":       float64(800),
		"delivery_date":   "2025-01-15",
		"status":          "in_transit",
	}

	tests := []struct {
		name   string
		filter *models.StructuredFilter
		want   bool
	}{
		{"equals case-insensitive", structured("collection_city", models.OpEquals, "milton keynes", models.FilterValueString), true},
		{"not_equals", structured("collection_city", models.OpNotEquals, "Leeds", models.FilterValueString), true},
		{"starts_with", structured("collection_city", models.OpStartsWith, "milton", models.FilterValueString), true},
		{"ends_with", structured("collection_city", models.OpEndsWith, "KEYNES", models.FilterValueString), true},
		{"not_contains", structured("collection_city", models.OpNotContains, "york", models.FilterValueString), true},
		{"number equals with thousands separator", structured("quoted_price", models.OpEquals, 1234.5, models.FilterValueNumber), true},
		{"number gt", structured("quoted_price", models.OpGreater, 1000, models.FilterValueNumber), true},
		{"number lte float value", structured("weight_kg", models.OpLessEq, 800, models.FilterValueNumber), true},
		{"number lt false", structured("weight_kg", models.OpLess, "500", models.FilterValueNumber), false},
		{"date after", structured("delivery_date", models.OpGreater, "2025-01-01", models.FilterValueDate), true},
		{"date before day-first", structured("delivery_date", models.OpLess, "20/01/2025", models.FilterValueDate), true},
		{"date equals", structured("delivery_date", models.OpEquals, "15/01/2025", models.FilterValueDate), true},
		{"in list", structured("status", models.OpIn, []any{"posted", "in_transit"}, models.FilterValueEnum), true},
		{"in comma string", structured("status", models.OpIn, "draft, completed", models.FilterValueEnum), false},
		{"number compare with text value", structured("collection_city", models.OpGreater, 5, models.FilterValueNumber), false},
		{"unknown operator", structured("collection_city", models.FilterOp("like"), "Milton", models.FilterValueString), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchFilter(row, tt.filter))
		})
	}
}

func TestValidateFilterFields(t *testing.T) {
	columns := []string{"collection_city", "quoted_price", "status"}
	rules := []models.FilterRule{
		{ID: "ok", Type: models.FilterInclusion, Structured: structured("collection_city", models.OpContains, "London", models.FilterValueString)},
		{ID: "text", Type: models.FilterInclusion, Rule: "quoted_price >= 100"},
		{ID: "bad-field", Type: models.FilterInclusion, Structured: structured("delivery_town", models.OpEquals, "Luton", models.FilterValueString)},
		{ID: "bad-op", Type: models.FilterInclusion, Structured: structured("status", models.FilterOp("like"), "post", models.FilterValueString)},
		{ID: "nonsense", Type: models.FilterExclusion, Rule: "please remove the weird ones"},
	}

	valid, warnings := ValidateFilterFields(rules, columns)

	require.Len(t, valid, 2)
	assert.Equal(t, "ok", valid[0].ID)
	assert.Equal(t, "text", valid[1].ID)
	require.NotNil(t, valid[1].Structured)
	assert.Equal(t, "quoted_price", valid[1].Structured.Field)
	assert.Equal(t, models.OpGreaterEq, valid[1].Structured.Op)
	assert.Nil(t, rules[1].Structured, "caller rules are not modified")

	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], `unknown field "delivery_town"`)
	assert.Contains(t, warnings[1], `unknown operator "like"`)
	assert.Contains(t, warnings[2], "could not be interpreted")
}

func TestApplyFilters_FourRuleLondonOrGroup(t *testing.T) {
	rows := []models.Row{
		{"quote_id": "q1", "collection_town": "Croydon", "collection_city": "London", "delivery_town": "Otley", "delivery_city": "Leeds"},
		{"quote_id": "q2", "collection_town": "Filton", "collection_city": "Bristol", "delivery_town": "London Colney", "delivery_city": nil},
		{"quote_id": "q3", "collection_town": "Filton", "collection_city": "Bristol", "delivery_town": "Otley", "delivery_city": "Leeds"},
	}
	var rules []models.FilterRule
	for _, field := range []string{"collection_town", "collection_city", "delivery_town", "delivery_city"} {
		rules = append(rules, models.FilterRule{
			Type: models.FilterInclusion,
			Structured: &models.StructuredFilter{
				Field: field, Op: models.OpContains, Value: "London", Type: models.FilterValueString, OrGroup: intPtr(1),
			},
		})
	}

	kept := ApplyFilters(rows, rules)

	require.Len(t, kept, 2)
	assert.Equal(t, "q1", kept[0]["quote_id"])
	assert.Equal(t, "q2", kept[1]["quote_id"])
}

func TestApplyFilters_StringEqualsIsExact(t *testing.T) {
	rows := []models.Row{
		{"quote_id": "007"},
		{"quote_id": "7"},
		{"quote_id": "£7"},
	}

	tests := []struct {
		name string
		rule models.FilterRule
		want []string
	}{
		{
			name: "string equals",
			rule: models.FilterRule{Type: models.FilterInclusion, Structured: structured("quote_id", models.OpEquals, "7", models.FilterValueString)},
			want: []string{"7"},
		},
		{
			name: "string not_equals",
			rule: models.FilterRule{Type: models.FilterInclusion, Structured: structured("quote_id", models.OpNotEquals, "7", models.FilterValueString)},
			want: []string{"007", "£7"},
		},
		{
			name: "untyped equals with text value",
			rule: models.FilterRule{Type: models.FilterInclusion, Structured: structured("quote_id", models.OpEquals, "7", "")},
			want: []string{"7"},
		},
		{
			name: "number equals still parses",
			rule: models.FilterRule{Type: models.FilterInclusion, Structured: structured("quote_id", models.OpEquals, "7", models.FilterValueNumber)},
			want: []string{"007", "7", "£7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept := ApplyFilters(rows, []models.FilterRule{tt.rule})

			var ids []string
			for _, row := range kept {
				ids = append(ids, row["quote_id"].(string))
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
