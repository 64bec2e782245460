package services

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/ekaya-inc/haulflow/pkg/models"
)

// MapRows renames source columns onto the target schema of kind.
// mapping is target field -> source column. An empty mapping means the entity is not
// configured and yields no rows. Every schema field (plus any extra mapped target) is
// present in each output row; unmapped or missing sources become nil.
func MapRows(kind models.EntityKind, rows []models.Row, mapping map[string]string) []models.Row {
	if len(mapping) == 0 {
		return []models.Row{}
	}

	fields := mappedFieldOrder(kind, mapping)
	out := make([]models.Row, 0, len(rows))
	for _, src := range rows {
		lookup := newColumnLookup(src)
		row := make(models.Row, len(fields))
		for _, field := range fields {
			source := mapping[field]
			if source == "" {
				row[field] = nil
				continue
			}
			row[field] = lookup.get(source)
		}
		out = append(out, row)
	}
	return out
}

// mappedFieldOrder returns the schema fields of kind followed by any mapped targets
// that are not part of the schema, in sorted order.
func mappedFieldOrder(kind models.EntityKind, mapping map[string]string) []string {
	fields := models.TargetFieldNames(kind)
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f] = true
	}
	var extra []string
	for target := range mapping {
		if !known[target] {
			extra = append(extra, target)
		}
	}
	sort.Strings(extra)
	return append(fields, extra...)
}

// columnLookup resolves a source column name exactly, then case- and
// whitespace-insensitively.
type columnLookup struct {
	row        models.Row
	normalized map[string]string
}

func newColumnLookup(row models.Row) *columnLookup {
	return &columnLookup{row: row}
}

func (l *columnLookup) get(column string) any {
	if v, ok := l.row[column]; ok {
		return v
	}
	if l.normalized == nil {
		l.normalized = make(map[string]string, len(l.row))
		for k := range l.row {
			l.normalized[normalizeKey(k)] = k
		}
	}
	if actual, ok := l.normalized[normalizeKey(column)]; ok {
		return l.row[actual]
	}
	return nil
}

// normalizeKey lowercases and strips surrounding whitespace for key comparisons.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	tokenSplitter = regexp.MustCompile(`[^a-z0-9]+`)
)

// headerAliases maps normalized header phrases to target fields for common spellings
// seen in carrier exports.
var headerAliases = map[models.EntityKind]map[string]string{
	models.EntityQuote: {
		"id":           models.FieldQuoteID,
		"quote":        models.FieldQuoteID,
		"price":        "quoted_price",
		"amount":       "quoted_price",
		"quote amount": "quoted_price",
		"created":      "date_created",
		"created date": "date_created",
		"quote date":   "date_created",
		"distance":     "distance_km",
		"vehicle type": models.FieldRequestedVehicle,
		"vehicle":      models.FieldRequestedVehicle,
		"quoter":       "quoted_by",
		"quote status": models.FieldStatus,
		"modified":     models.FieldUpdatedAt,
		"last updated": models.FieldUpdatedAt,
	},
	models.EntityLoad: {
		"id":           models.FieldLoadID,
		"load":         models.FieldLoadID,
		"pickup town":  "collection_town",
		"pickup city":  "collection_city",
		"pickup date":  "collection_date",
		"dropoff town": "delivery_town",
		"dropoff city": "delivery_city",
		"dropoff date": "delivery_date",
		"vehicle id":   models.FieldAllocatedVehicleID,
		"vehicle":      models.FieldAllocatedVehicleID,
		"driver":       models.FieldDriverID,
		"load status":  models.FieldStatus,
		"posted by":    "load_poster_name",
		"poster":       "load_poster_name",
		"weight":       "weight_kg",
		"modified":     models.FieldUpdatedAt,
		"last updated": models.FieldUpdatedAt,
	},
	models.EntityDriverVehicle: {
		"driver":       models.FieldDriverID,
		"name":         "driver_name",
		"driver full":  "driver_name",
		"email":        "driver_email",
		"phone":        "driver_phone",
		"mobile":       "driver_phone",
		"vehicle":      models.FieldVehicleID,
		"reg":          "vehicle_registration",
		"registration": "vehicle_registration",
		"reg plate":    "vehicle_registration",
		"type":         models.FieldVehicleType,
		"capacity":     "capacity_kg",
		"payload":      "capacity_kg",
		"modified":     models.FieldUpdatedAt,
		"last updated": models.FieldUpdatedAt,
	},
}

// normalizeHeader splits camelCase, lowercases, drops punctuation and singularizes
// each token: "Collection_Towns" and "collectionTown" both become "collection town".
func normalizeHeader(s string) string {
	s = camelBoundary.ReplaceAllString(strings.TrimSpace(s), "$1 $2")
	tokens := tokenSplitter.Split(strings.ToLower(s), -1)
	out := tokens[:0]
	for _, t := range tokens {
		if t == "" {
			continue
		}
		out = append(out, inflection.Singular(t))
	}
	return strings.Join(out, " ")
}

// SuggestMappings proposes a source header for each target field of kind.
// Matching order per field: exact normalized match, alias table, then the closest
// header within Levenshtein distance 2. Each header is used at most once.
func SuggestMappings(kind models.EntityKind, headers []string) map[string]string {
	suggestions := make(map[string]string)
	if !models.IsValidEntity(kind) {
		return suggestions
	}

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}
	used := make([]bool, len(headers))
	fields := models.TargetFieldNames(kind)

	claim := func(field string, idx int) {
		suggestions[field] = headers[idx]
		used[idx] = true
	}

	// Pass 1: exact normalized match.
	for _, field := range fields {
		target := normalizeHeader(field)
		for i, n := range normalized {
			if !used[i] && n == target {
				claim(field, i)
				break
			}
		}
	}

	// Pass 2: aliases.
	aliases := headerAliases[kind]
	for i, n := range normalized {
		if used[i] {
			continue
		}
		field, ok := aliases[n]
		if !ok {
			continue
		}
		if _, taken := suggestions[field]; taken {
			continue
		}
		claim(field, i)
	}

	// Pass 3: fuzzy.
	for _, field := range fields {
		if _, taken := suggestions[field]; taken {
			continue
		}
		target := normalizeHeader(field)
		best, bestDist := -1, 3
		for i, n := range normalized {
			if used[i] || n == "" {
				continue
			}
			d := fuzzy.LevenshteinDistance(n, target)
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		if best >= 0 {
			claim(field, best)
		}
	}

	return suggestions
}
