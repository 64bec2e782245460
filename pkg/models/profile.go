package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a saved pipeline configuration: how source columns map onto the target
// schemas, how raw enum tokens map onto canonical values, how values are cleaned, how
// entities join and which rows are kept.
// Stored in the haulflow_profiles table with the nested configuration as JSONB.
type Profile struct {
	ID   uuid.UUID `json:"id" yaml:"-"`
	Name string    `json:"name" yaml:"name"`

	// Mappings maps entity -> target field -> source column.
	Mappings map[EntityKind]map[string]string `json:"mappings" yaml:"mappings"`
	// EnumMappings maps entity -> field -> raw source token -> canonical value.
	EnumMappings map[EntityKind]map[string]map[string]string `json:"enum_mappings,omitempty" yaml:"enum_mappings,omitempty"`
	// Transformations maps entity -> field -> cleaning rule. Nil disables the transform stage.
	Transformations map[EntityKind]map[string]TransformRule `json:"transformations,omitempty" yaml:"transformations,omitempty"`
	Joins           []JoinConfig                            `json:"joins,omitempty" yaml:"joins,omitempty"`
	Filters         []FilterRule                            `json:"filters,omitempty" yaml:"filters,omitempty"`
	// DedupKeys overrides the id/updated-at fields used for deduplication per entity.
	DedupKeys map[EntityKind]DedupKey `json:"dedup_keys,omitempty" yaml:"dedup_keys,omitempty"`

	IsActive  bool      `json:"is_active" yaml:"-"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// MappingFor returns the mapping configured for an entity, or nil.
func (p *Profile) MappingFor(kind EntityKind) map[string]string {
	if p == nil || p.Mappings == nil {
		return nil
	}
	return p.Mappings[kind]
}

// HasAnyMapping reports whether at least one entity has a non-empty mapping.
func (p *Profile) HasAnyMapping() bool {
	for _, kind := range AllEntities() {
		if len(p.MappingFor(kind)) > 0 {
			return true
		}
	}
	return false
}

// DedupKey names the identity and recency fields used to collapse duplicates.
type DedupKey struct {
	IDField        string `json:"id_field" yaml:"id_field"`
	UpdatedAtField string `json:"updated_at_field" yaml:"updated_at_field"`
}

// DefaultDedupKey returns the dedup key used when a profile does not override it.
func DefaultDedupKey(kind EntityKind) DedupKey {
	switch kind {
	case EntityQuote:
		return DedupKey{IDField: FieldQuoteID, UpdatedAtField: FieldUpdatedAt}
	case EntityLoad:
		return DedupKey{IDField: FieldLoadID, UpdatedAtField: FieldUpdatedAt}
	default:
		return DedupKey{IDField: FieldVehicleID, UpdatedAtField: FieldUpdatedAt}
	}
}

// DedupKeyFor returns the profile's dedup key for kind, falling back to the default.
func (p *Profile) DedupKeyFor(kind EntityKind) DedupKey {
	def := DefaultDedupKey(kind)
	if p == nil || p.DedupKeys == nil {
		return def
	}
	key, ok := p.DedupKeys[kind]
	if !ok {
		return def
	}
	if key.IDField == "" {
		key.IDField = def.IDField
	}
	if key.UpdatedAtField == "" {
		key.UpdatedAtField = def.UpdatedAtField
	}
	return key
}

// TransformType selects the cleaner applied to a field.
type TransformType string

const (
	TransformSkip         TransformType = "skip"
	TransformDate         TransformType = "date"
	TransformDateTime     TransformType = "datetime"
	TransformNumber       TransformType = "number"
	TransformInteger      TransformType = "integer"
	TransformLocationCity TransformType = "location_city"
	TransformLocationTown TransformType = "location_town"
	TransformPersonName   TransformType = "person_name"
	TransformEmail        TransformType = "email"
	TransformPhone        TransformType = "phone"
	TransformRegistration TransformType = "registration"
	TransformUUID         TransformType = "uuid"
)

// IsValidTransformType checks whether t names a known cleaner.
func IsValidTransformType(t TransformType) bool {
	switch t {
	case TransformSkip, TransformDate, TransformDateTime, TransformNumber, TransformInteger,
		TransformLocationCity, TransformLocationTown, TransformPersonName, TransformEmail,
		TransformPhone, TransformRegistration, TransformUUID:
		return true
	}
	return false
}

// TransformRule configures cleaning for one field.
type TransformRule struct {
	Type TransformType `json:"type" yaml:"type"`
	// StripSuffixes lists currency or unit tokens removed from number fields.
	StripSuffixes []string `json:"strip_suffixes,omitempty" yaml:"strip_suffixes,omitempty"`
	// ReferenceList lists canonical place names for location fields.
	ReferenceList []string `json:"reference_list,omitempty" yaml:"reference_list,omitempty"`
}

// JoinConfig declares how two entities connect.
type JoinConfig struct {
	Name        string     `json:"name" yaml:"name"`
	LeftEntity  EntityKind `json:"left_entity" yaml:"left_entity"`
	RightEntity EntityKind `json:"right_entity" yaml:"right_entity"`
	LeftKey     string     `json:"left_key" yaml:"left_key"`
	RightKey    string     `json:"right_key" yaml:"right_key"`
	FallbackKey string     `json:"fallback_key,omitempty" yaml:"fallback_key,omitempty"`
}

// DefaultJoins returns the quote->load and load->driver_vehicle joins.
func DefaultJoins() []JoinConfig {
	return []JoinConfig{
		{
			Name:        "Quote to Load",
			LeftEntity:  EntityQuote,
			RightEntity: EntityLoad,
			LeftKey:     FieldLoadID,
			RightKey:    FieldLoadID,
		},
		{
			Name:        "Load to Driver+Vehicle",
			LeftEntity:  EntityLoad,
			RightEntity: EntityDriverVehicle,
			LeftKey:     FieldAllocatedVehicleID,
			RightKey:    FieldVehicleID,
			FallbackKey: FieldDriverID,
		},
	}
}

// FilterType decides whether matching rows are kept or removed.
type FilterType string

const (
	FilterInclusion FilterType = "inclusion"
	FilterExclusion FilterType = "exclusion"
)

// FilterOp is a comparison operator of a structured filter.
type FilterOp string

const (
	OpEquals      FilterOp = "equals"
	OpNotEquals   FilterOp = "not_equals"
	OpContains    FilterOp = "contains"
	OpNotContains FilterOp = "not_contains"
	OpStartsWith  FilterOp = "starts_with"
	OpEndsWith    FilterOp = "ends_with"
	OpGreater     FilterOp = "gt"
	OpGreaterEq   FilterOp = "gte"
	OpLess        FilterOp = "lt"
	OpLessEq      FilterOp = "lte"
	OpIn          FilterOp = "in"
	OpIsEmpty     FilterOp = "is_empty"
	OpIsNotEmpty  FilterOp = "is_not_empty"
)

// IsValidFilterOp checks whether op is a supported operator.
func IsValidFilterOp(op FilterOp) bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpNotContains, OpStartsWith, OpEndsWith,
		OpGreater, OpGreaterEq, OpLess, OpLessEq, OpIn, OpIsEmpty, OpIsNotEmpty:
		return true
	}
	return false
}

// FilterValueType guides how a filter value is compared.
type FilterValueType string

const (
	FilterValueString FilterValueType = "string"
	FilterValueNumber FilterValueType = "number"
	FilterValueDate   FilterValueType = "date"
	FilterValueEnum   FilterValueType = "enum"
)

// FilterRule is a user-defined inclusion or exclusion rule. Rule holds the text the
// user wrote; Structured is the machine-readable form, interpreted from Rule when absent.
type FilterRule struct {
	ID         string            `json:"id,omitempty" yaml:"id,omitempty"`
	Type       FilterType        `json:"type" yaml:"type"`
	Rule       string            `json:"rule" yaml:"rule"`
	Structured *StructuredFilter `json:"structured,omitempty" yaml:"structured,omitempty"`
}

// StructuredFilter is a single field comparison. Rules sharing an OrGroup combine
// with OR before groups combine with AND.
type StructuredFilter struct {
	Field   string          `json:"field" yaml:"field"`
	Op      FilterOp        `json:"op" yaml:"op"`
	Value   any             `json:"value" yaml:"value"`
	Type    FilterValueType `json:"type,omitempty" yaml:"type,omitempty"`
	OrGroup *int            `json:"or_group,omitempty" yaml:"or_group,omitempty"`
}
