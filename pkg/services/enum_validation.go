package services

import (
	"github.com/ekaya-inc/haulflow/pkg/jsonutil"
	"github.com/ekaya-inc/haulflow/pkg/models"
)

// EnumValidationResult holds the validated flat rows and the enum columns that had at
// least one value cleared.
type EnumValidationResult struct {
	Rows               []models.Row
	FieldsWithWarnings []string
}

// ValidateEnums is the last enum check, run on flat rows after the join. It catches
// values that bypassed normalization, such as those of an entity without enum mappings.
// Non-blank values outside a column's canonical set become nil; valid values are kept
// as given.
func ValidateEnums(rows []models.Row) EnumValidationResult {
	columns := models.PostJoinEnumColumns()
	warned := make(map[string]bool, len(columns))

	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		next := row.Clone()
		for _, col := range columns {
			v, present := next[col.Name]
			if !present || models.IsBlank(v) {
				continue
			}
			s, ok := jsonutil.ScalarString(v)
			if ok {
				if _, valid := models.IsCanonical(s, col.Values); valid {
					continue
				}
			}
			next[col.Name] = nil
			warned[col.Name] = true
		}
		out = append(out, next)
	}

	var fields []string
	for _, col := range columns {
		if warned[col.Name] {
			fields = append(fields, col.Name)
		}
	}
	return EnumValidationResult{Rows: out, FieldsWithWarnings: fields}
}
