package services

import (
	"sort"

	"github.com/ekaya-inc/haulflow/pkg/jsonutil"
	"github.com/ekaya-inc/haulflow/pkg/models"
)

// vehicleIDAliases are tried, in order, after the configured left key when resolving
// the vehicle a flat row is allocated to.
var vehicleIDAliases = []string{models.FieldAllocatedVehicleID, models.FieldVehicleID, "Vehicle ID"}

// JoinResult holds the flat rows, the diagnostics of each join step and the ordered
// union of columns every flat row carries.
type JoinResult struct {
	Rows    []models.Row
	Steps   []models.JoinStep
	Columns []string
}

// JoinRows joins quotes to loads and then to driver+vehicle rows.
//
// Step 1 (quote -> load) drops quotes whose load is missing: a quote without its load
// means nothing. Step 2 (load -> driver_vehicle) keeps rows without a match, because an
// unassigned load is a normal state; their driver_vehicle columns are set to nil.
// The asymmetry is intentional and must not be unified.
//
// joins may be nil, in which case models.DefaultJoins is used.
func JoinRows(quoteRows, loadRows, dvRows []models.Row, joins []models.JoinConfig) JoinResult {
	quoteLoad, loadDV := resolveJoinConfigs(joins)

	quoteCols := orderedColumns(models.EntityQuote, quoteRows)
	loadCols := orderedColumns(models.EntityLoad, loadRows)
	dvCols := orderedColumns(models.EntityDriverVehicle, dvRows)

	joined := joinQuoteToLoad(quoteRows, loadRows, quoteLoad)
	step1 := joinStep(quoteLoad, len(quoteRows), len(joined))

	flat := joinLoadToDriverVehicle(joined, dvRows, dvCols, loadDV)
	step2 := joinStep(loadDV, len(joined), len(flat))

	columns := appendUnique(nil, quoteCols...)
	columns = appendUnique(columns, models.FieldQuoteStatus, models.FieldLoadStatus)
	columns = appendUnique(columns, loadCols...)
	columns = appendUnique(columns, dvCols...)

	return JoinResult{
		Rows:    flat,
		Steps:   []models.JoinStep{step1, step2},
		Columns: columns,
	}
}

// resolveJoinConfigs picks the quote->load and load->driver_vehicle configs from joins,
// falling back to the defaults for any that are missing.
func resolveJoinConfigs(joins []models.JoinConfig) (models.JoinConfig, models.JoinConfig) {
	defaults := models.DefaultJoins()
	quoteLoad, loadDV := defaults[0], defaults[1]
	for _, j := range joins {
		switch {
		case j.LeftEntity == models.EntityQuote && j.RightEntity == models.EntityLoad:
			quoteLoad = withDefaultKeys(j, defaults[0])
		case j.LeftEntity == models.EntityLoad && j.RightEntity == models.EntityDriverVehicle:
			loadDV = withDefaultKeys(j, defaults[1])
		}
	}
	return quoteLoad, loadDV
}

func withDefaultKeys(j, def models.JoinConfig) models.JoinConfig {
	if j.Name == "" {
		j.Name = def.Name
	}
	if j.LeftKey == "" {
		j.LeftKey = def.LeftKey
	}
	if j.RightKey == "" {
		j.RightKey = def.RightKey
	}
	return j
}

func joinStep(cfg models.JoinConfig, before, after int) models.JoinStep {
	return models.JoinStep{
		Name:        cfg.Name,
		LeftEntity:  cfg.LeftEntity,
		RightEntity: cfg.RightEntity,
		LeftKey:     cfg.LeftKey,
		RightKey:    cfg.RightKey,
		FallbackKey: cfg.FallbackKey,
		RowsBefore:  before,
		RowsAfter:   after,
	}
}

// joinQuoteToLoad is an inner join: quotes without a matching load are dropped. Load
// fields override quote fields on name clashes, and the pre-merge statuses are kept
// as quote_status and load_status.
func joinQuoteToLoad(quotes, loads []models.Row, cfg models.JoinConfig) []models.Row {
	index := make(map[string]models.Row, len(loads))
	for _, load := range loads {
		if key, ok := jsonutil.TrimmedString(load[cfg.RightKey]); ok {
			index[key] = load
		}
	}

	out := make([]models.Row, 0, len(quotes))
	for _, quote := range quotes {
		key, ok := jsonutil.TrimmedString(quote[cfg.LeftKey])
		if !ok {
			continue
		}
		load, ok := index[key]
		if !ok {
			continue
		}

		merged := quote.Clone()
		for k, v := range load {
			merged[k] = v
		}
		merged[models.FieldQuoteStatus] = quote[models.FieldStatus]
		merged[models.FieldLoadStatus] = load[models.FieldStatus]
		out = append(out, merged)
	}
	return out
}

// joinLoadToDriverVehicle is a left join. The vehicle id is looked up first, then the
// fallback key; keys compare case- and whitespace-insensitively. The driver_vehicle side
// wins on shared columns, so unmatched rows get nil for every driver_vehicle column,
// including ones the load also carries such as driver_id and updated_at.
func joinLoadToDriverVehicle(rows, dvRows []models.Row, dvCols []string, cfg models.JoinConfig) []models.Row {
	byVehicle := make(map[string]models.Row, len(dvRows))
	byDriver := make(map[string]models.Row, len(dvRows))
	for _, dv := range dvRows {
		if key, ok := joinKey(dv[cfg.RightKey]); ok {
			byVehicle[key] = dv
		}
		if cfg.FallbackKey != "" {
			if key, ok := joinKey(dv[cfg.FallbackKey]); ok {
				byDriver[key] = dv
			}
		}
	}

	leftKeys := appendUnique([]string{cfg.LeftKey}, vehicleIDAliases...)

	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		merged := row.Clone()
		match := lookupDriverVehicle(row, leftKeys, cfg.FallbackKey, byVehicle, byDriver)
		if match != nil {
			for k, v := range match {
				merged[k] = v
			}
		} else {
			for _, col := range dvCols {
				merged[col] = nil
			}
		}
		out = append(out, merged)
	}
	return out
}

func lookupDriverVehicle(row models.Row, leftKeys []string, fallbackKey string, byVehicle, byDriver map[string]models.Row) models.Row {
	for _, k := range leftKeys {
		key, ok := joinKey(row[k])
		if !ok {
			continue
		}
		if dv, found := byVehicle[key]; found {
			return dv
		}
		// The first present vehicle id decides; aliases are not a second lookup.
		break
	}
	if fallbackKey == "" {
		return nil
	}
	if key, ok := joinKey(row[fallbackKey]); ok {
		return byDriver[key]
	}
	return nil
}

// joinKey normalizes a key value for case- and whitespace-insensitive matching.
func joinKey(v any) (string, bool) {
	s, ok := jsonutil.TrimmedString(v)
	if !ok {
		return "", false
	}
	return normalizeKey(s), true
}

// orderedColumns returns the union of keys across rows: schema fields of kind first, in
// schema order, then any other keys sorted.
func orderedColumns(kind models.EntityKind, rows []models.Row) []string {
	if len(rows) == 0 {
		return nil
	}
	present := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			present[k] = true
		}
	}

	var cols []string
	for _, f := range models.TargetFieldNames(kind) {
		if present[f] {
			cols = append(cols, f)
			delete(present, f)
		}
	}
	extra := make([]string, 0, len(present))
	for k := range present {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]bool, len(dst)+len(values))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			dst = append(dst, v)
		}
	}
	return dst
}
