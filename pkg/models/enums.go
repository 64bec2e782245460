package models

import "strings"

// Canonical enum value sets.
var (
	QuoteStatuses = []string{"draft", "sent", "accepted", "rejected", "expired"}
	LoadStatuses  = []string{"draft", "posted", "in_transit", "completed", "cancelled"}
	VehicleTypes  = []string{
		"small_van",
		"medium_van",
		"large_van",
		"luton_van",
		"rigid_7_5t",
		"rigid_18t",
		"rigid_26t",
		"articulated",
	}
)

// EnumFieldsFor returns the enum-bearing fields of an entity and their canonical values.
func EnumFieldsFor(kind EntityKind) map[string][]string {
	switch kind {
	case EntityQuote:
		return map[string][]string{
			FieldStatus:           QuoteStatuses,
			FieldRequestedVehicle: VehicleTypes,
		}
	case EntityLoad:
		return map[string][]string{
			FieldStatus: LoadStatuses,
		}
	case EntityDriverVehicle:
		return map[string][]string{
			FieldVehicleType: VehicleTypes,
		}
	default:
		return nil
	}
}

// PostJoinEnumColumns returns the enum-bearing columns of a flat row, in check order,
// with the values accepted for each. After the join the status column may hold a
// quote or a load status depending on which side supplied it.
func PostJoinEnumColumns() []EnumColumn {
	return []EnumColumn{
		{Name: FieldStatus, Values: union(QuoteStatuses, LoadStatuses)},
		{Name: FieldVehicleType, Values: VehicleTypes},
		{Name: FieldRequestedVehicle, Values: VehicleTypes},
	}
}

// EnumColumn pairs a column name with its canonical values.
type EnumColumn struct {
	Name   string
	Values []string
}

// IsCanonical reports whether value matches one of the canonical values after
// trimming and lowercasing, returning the canonical spelling.
func IsCanonical(value string, canonical []string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, c := range canonical {
		if v == c {
			return c, true
		}
	}
	return "", false
}

func union(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range sets {
		for _, v := range set {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
