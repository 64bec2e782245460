package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ekaya-inc/haulflow/pkg/models"
)

// TransformResult holds cleaned rows plus one warning per field where cleaning turned
// a non-blank value into nil.
type TransformResult struct {
	Rows     []models.Row
	Warnings []string
}

// TransformRows applies the configured cleaner to each field of kind's rows.
// Fields absent from a row are skipped, never created. refs supplies default place
// lists for location rules without their own list; nil uses the built-in lists.
func TransformRows(rows []models.Row, kind models.EntityKind, config map[string]models.TransformRule, refs *ReferenceLists) TransformResult {
	if refs == nil {
		refs = DefaultReferenceLists()
	}

	fields := make([]string, 0, len(config))
	for field := range config {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	nulled := make(map[string]int)
	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		next := row.Clone()
		for _, field := range fields {
			v, present := next[field]
			if !present {
				continue
			}
			cleaned := applyRule(v, config[field], refs)
			if cleaned == nil && !models.IsBlank(v) {
				nulled[field]++
			}
			next[field] = cleaned
		}
		out = append(out, next)
	}

	var warnings []string
	for _, field := range fields {
		if n := nulled[field]; n > 0 {
			warnings = append(warnings, fmt.Sprintf("%s.%s: %d value(s) could not be parsed as %s and were cleared",
				kind, field, n, config[field].Type))
		}
	}
	return TransformResult{Rows: out, Warnings: warnings}
}

// applyRule dispatches a value to the cleaner named by rule.
func applyRule(v any, rule models.TransformRule, refs *ReferenceLists) any {
	switch rule.Type {
	case models.TransformDate:
		return CleanDate(v)
	case models.TransformDateTime:
		return CleanDateTime(v)
	case models.TransformNumber:
		return CleanNumber(v, rule.StripSuffixes)
	case models.TransformInteger:
		return CleanInteger(v)
	case models.TransformLocationCity:
		list := rule.ReferenceList
		if len(list) == 0 {
			list = refs.Cities
		}
		return CleanLocation(v, list)
	case models.TransformLocationTown:
		list := rule.ReferenceList
		if len(list) == 0 {
			list = refs.Towns
		}
		return CleanLocation(v, list)
	case models.TransformPersonName:
		return CleanPersonName(v)
	case models.TransformEmail:
		return CleanEmail(v)
	case models.TransformPhone:
		return CleanPhone(v)
	case models.TransformRegistration:
		return CleanRegistration(v)
	default:
		// uuid, skip and unknown rule types only trim.
		return CleanUUID(v)
	}
}

// DefaultTransformConfig derives a cleaning rule for each typed field of kind's schema.
// Names ending in _town or _city get location rules; known contact fields get their
// dedicated cleaners.
func DefaultTransformConfig(kind models.EntityKind) map[string]models.TransformRule {
	config := make(map[string]models.TransformRule)
	for _, f := range models.TargetSchema(kind) {
		var t models.TransformType
		switch f.Type {
		case models.FieldTypeDate:
			t = models.TransformDate
		case models.FieldTypeTimestamp:
			t = models.TransformDateTime
		case models.FieldTypeDecimal:
			t = models.TransformNumber
		case models.FieldTypeInteger:
			t = models.TransformInteger
		case models.FieldTypeUUID:
			t = models.TransformUUID
		case models.FieldTypeEnum:
			continue
		default:
			t = varcharRule(f.Name)
		}
		config[f.Name] = models.TransformRule{Type: t}
	}
	return config
}

func varcharRule(name string) models.TransformType {
	switch {
	case strings.HasSuffix(name, "_city"):
		return models.TransformLocationCity
	case strings.HasSuffix(name, "_town"):
		return models.TransformLocationTown
	case strings.HasSuffix(name, "_email"):
		return models.TransformEmail
	case strings.HasSuffix(name, "_phone"):
		return models.TransformPhone
	case strings.HasSuffix(name, "_registration"):
		return models.TransformRegistration
	case strings.HasSuffix(name, "_name") || name == "quoted_by":
		return models.TransformPersonName
	default:
		return models.TransformSkip
	}
}
