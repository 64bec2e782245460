package models

import "github.com/google/uuid"

// ValidationOptions tunes a single validation run.
type ValidationOptions struct {
	// JoinOnly stops after the join and enum validation; filters never run.
	JoinOnly bool `json:"join_only"`
	// FiltersOverride replaces the profile's filters when non-nil.
	// An empty, non-nil slice runs with no filters.
	FiltersOverride []FilterRule `json:"filters_override,omitempty"`
}

// JoinStep records the row counts around one join.
type JoinStep struct {
	Name        string     `json:"name"`
	LeftEntity  EntityKind `json:"left_entity"`
	RightEntity EntityKind `json:"right_entity"`
	LeftKey     string     `json:"left_key"`
	RightKey    string     `json:"right_key"`
	FallbackKey string     `json:"fallback_key,omitempty"`
	RowsBefore  int        `json:"rows_before"`
	RowsAfter   int        `json:"rows_after"`
}

// RuleEffect reports how many rows entered a filter rule's group and how many of those
// would survive the rule on its own.
type RuleEffect struct {
	RuleID string `json:"rule_id,omitempty"`
	Rule   string `json:"rule"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// ValidationSummary is the result of one pipeline run.
type ValidationSummary struct {
	RunID uuid.UUID `json:"run_id"`

	RowsSuccessful int `json:"rows_successful"`
	RowsDropped    int `json:"rows_dropped"`

	FieldsWithWarnings  []string `json:"fields_with_warnings"`
	DedupWarnings       []string `json:"dedup_warnings"`
	TransformWarnings   []string `json:"transform_warnings,omitempty"`
	FilterFieldWarnings []string `json:"filter_field_warnings"`

	FlatColumns []string `json:"flat_columns"`
	FlatRows    []Row    `json:"flat_rows"`

	ExcludedByFilter      []Row        `json:"excluded_by_filter,omitempty"`
	ExcludedByFilterCount *int         `json:"excluded_by_filter_count,omitempty"`
	RuleEffects           []RuleEffect `json:"rule_effects,omitempty"`

	CellsWithWarnings *int     `json:"cells_with_warnings,omitempty"`
	NullOrErrorFields []string `json:"null_or_error_fields,omitempty"`
	NullOrEmptyCells  *int     `json:"null_or_empty_cells,omitempty"`

	JoinSteps []JoinStep `json:"join_steps,omitempty"`
}
