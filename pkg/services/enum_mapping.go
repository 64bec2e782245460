package services

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/ekaya-inc/haulflow/pkg/jsonutil"
	"github.com/ekaya-inc/haulflow/pkg/models"
)

// EnumNormalizeResult holds normalized rows and the fields where at least one value
// could not be mapped to a canonical value and was nulled.
type EnumNormalizeResult struct {
	Rows          []models.Row
	InvalidFields []string
}

// NormalizeEnums maps raw enum tokens of kind's enum fields to canonical values.
// For each non-blank value: an explicit enum mapping entry wins (exact key, then
// trimmed/lowercased key); otherwise a value that already matches a canonical value is
// normalized to its canonical casing; otherwise the value becomes nil.
// nil and empty values are left untouched so "missing" stays distinct from "invalid".
func NormalizeEnums(rows []models.Row, kind models.EntityKind, enumMappings map[models.EntityKind]map[string]map[string]string) EnumNormalizeResult {
	fields := models.EnumFieldsFor(kind)
	entityMappings := enumMappings[kind]

	lookups := make(map[string]map[string]string, len(fields))
	for field := range fields {
		lookups[field] = foldEnumMapping(entityMappings[field])
	}

	invalid := make(map[string]bool)
	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		next := row.Clone()
		for field, canonical := range fields {
			v, present := next[field]
			if !present || models.IsBlank(v) {
				continue
			}
			raw, ok := jsonutil.ScalarString(v)
			if !ok {
				next[field] = nil
				invalid[field] = true
				continue
			}
			resolved, ok := resolveEnum(raw, entityMappings[field], lookups[field], canonical)
			if !ok {
				next[field] = nil
				invalid[field] = true
				continue
			}
			next[field] = resolved
		}
		out = append(out, next)
	}

	return EnumNormalizeResult{Rows: out, InvalidFields: sortedKeys(invalid)}
}

// foldEnumMapping indexes an explicit mapping by trimmed, lowercased key.
func foldEnumMapping(mapping map[string]string) map[string]string {
	folded := make(map[string]string, len(mapping))
	for raw, canonical := range mapping {
		folded[normalizeKey(raw)] = canonical
	}
	return folded
}

func resolveEnum(raw string, explicit, folded map[string]string, canonical []string) (string, bool) {
	if target, ok := explicit[raw]; ok {
		return models.IsCanonical(target, canonical)
	}
	if target, ok := folded[normalizeKey(raw)]; ok {
		return models.IsCanonical(target, canonical)
	}
	return models.IsCanonical(raw, canonical)
}

// enumToken reduces an enum spelling to lowercase words joined by underscores:
// "In Transit", "in-transit" and "IN_TRANSIT" all become "in_transit".
func enumToken(s string) string {
	return strings.Join(tokenSplitter.Split(strings.ToLower(strings.TrimSpace(s)), -1), "_")
}

// SuggestEnumMappings proposes a canonical value for each distinct raw value of an enum
// field. Values are matched by token form first, then by the closest canonical value
// within Levenshtein distance 2. Values with no plausible match are left out.
func SuggestEnumMappings(kind models.EntityKind, field string, rawValues []string) map[string]string {
	suggestions := make(map[string]string)
	canonical, ok := models.EnumFieldsFor(kind)[field]
	if !ok {
		return suggestions
	}

	for _, raw := range rawValues {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, done := suggestions[raw]; done {
			continue
		}
		token := strings.Trim(enumToken(raw), "_")
		best, bestDist := "", 3
		for _, c := range canonical {
			if token == c {
				best, bestDist = c, 0
				break
			}
			if d := fuzzy.LevenshteinDistance(token, c); d < bestDist {
				best, bestDist = c, d
			}
		}
		if best != "" {
			suggestions[raw] = best
		}
	}
	return suggestions
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
