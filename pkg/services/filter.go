package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ekaya-inc/haulflow/pkg/jsonutil"
	"github.com/ekaya-inc/haulflow/pkg/models"
)

// FilterResult holds the rows kept by the filters, the rows removed (in input order),
// the per-rule effects, and a warning for each rule that could not be evaluated.
type FilterResult struct {
	Rows     []models.Row
	Excluded []models.Row
	Effects  []models.RuleEffect
	Skipped  []string
}

// filterGroup is a set of rules sharing an OrGroup. Rules without one form a group
// of their own.
type filterGroup struct {
	inclusions []models.FilterRule
	exclusions []models.FilterRule
	// members keeps the rules in declaration order, with their index in the effects slice.
	members []groupMember
}

type groupMember struct {
	rule   models.FilterRule
	effect int
}

// ApplyFilters keeps the rows that pass every filter group.
func ApplyFilters(rows []models.Row, rules []models.FilterRule) []models.Row {
	return ApplyFiltersWithRuleEffects(rows, rules).Rows
}

// ApplyFiltersWithRuleEffects filters rows and reports, per rule, how many rows entered
// its group and how many of those the rule alone would keep.
//
// Within a group a row passes when it matches any inclusion rule (or the group has
// none) and matches no exclusion rule. Groups combine with AND, evaluated in the order
// their first rule appears.
func ApplyFiltersWithRuleEffects(rows []models.Row, rules []models.FilterRule) FilterResult {
	resolved, skipped := resolveFilterRules(rules, columnsOf(rows))
	result := applyFilterGroups(rows, resolved)
	result.Skipped = skipped
	return result
}

// applyFilterGroups evaluates rules that already carry a structured form.
func applyFilterGroups(rows []models.Row, rules []models.FilterRule) FilterResult {
	groups, effects := groupFilterRules(rules)

	kept := make([]models.Row, 0, len(rows))
	var excluded []models.Row
	for _, row := range rows {
		passed := true
		for _, g := range groups {
			for _, m := range g.members {
				effects[m.effect].Before++
				if ruleKeeps(row, m.rule) {
					effects[m.effect].After++
				}
			}
			if !g.passes(row) {
				passed = false
				break
			}
		}
		if passed {
			kept = append(kept, row)
		} else {
			excluded = append(excluded, row)
		}
	}

	return FilterResult{Rows: kept, Excluded: excluded, Effects: effects}
}

// ValidateFilterFields drops rules that cannot be evaluated against the flat columns:
// rules whose text cannot be interpreted, rules with an unknown operator and rules whose
// field is not a column. The returned rules all carry a structured form.
func ValidateFilterFields(rules []models.FilterRule, columns []string) ([]models.FilterRule, []string) {
	return resolveFilterRules(rules, columns)
}

func resolveFilterRules(rules []models.FilterRule, columns []string) ([]models.FilterRule, []string) {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	valid := make([]models.FilterRule, 0, len(rules))
	var warnings []string
	for _, rule := range rules {
		if rule.Structured == nil {
			sf, err := InterpretFilterRule(rule.Rule, columns)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("Filter %q could not be interpreted and was skipped: %v", ruleLabel(rule), err))
				continue
			}
			rule.Structured = sf
		}
		sf := rule.Structured
		if !models.IsValidFilterOp(sf.Op) {
			warnings = append(warnings, fmt.Sprintf("Filter %q uses unknown operator %q and was skipped", ruleLabel(rule), sf.Op))
			continue
		}
		if !known[sf.Field] {
			warnings = append(warnings, fmt.Sprintf("Filter %q references unknown field %q and was skipped", ruleLabel(rule), sf.Field))
			continue
		}
		valid = append(valid, rule)
	}
	return valid, warnings
}

func ruleLabel(rule models.FilterRule) string {
	if rule.Rule != "" {
		return rule.Rule
	}
	if rule.Structured != nil {
		return fmt.Sprintf("%s %s %v", rule.Structured.Field, rule.Structured.Op, rule.Structured.Value)
	}
	return rule.ID
}

func groupFilterRules(rules []models.FilterRule) ([]*filterGroup, []models.RuleEffect) {
	var groups []*filterGroup
	byTag := make(map[int]*filterGroup)
	effects := make([]models.RuleEffect, 0, len(rules))

	for _, rule := range rules {
		var g *filterGroup
		if tag := rule.Structured.OrGroup; tag != nil {
			g = byTag[*tag]
			if g == nil {
				g = &filterGroup{}
				byTag[*tag] = g
				groups = append(groups, g)
			}
		} else {
			g = &filterGroup{}
			groups = append(groups, g)
		}

		if rule.Type == models.FilterExclusion {
			g.exclusions = append(g.exclusions, rule)
		} else {
			g.inclusions = append(g.inclusions, rule)
		}
		g.members = append(g.members, groupMember{rule: rule, effect: len(effects)})
		effects = append(effects, models.RuleEffect{RuleID: rule.ID, Rule: ruleLabel(rule)})
	}
	return groups, effects
}

func (g *filterGroup) passes(row models.Row) bool {
	for _, rule := range g.exclusions {
		if matchFilter(row, rule.Structured) {
			return false
		}
	}
	if len(g.inclusions) == 0 {
		return true
	}
	for _, rule := range g.inclusions {
		if matchFilter(row, rule.Structured) {
			return true
		}
	}
	return false
}

// ruleKeeps reports whether the rule evaluated on its own would keep the row.
func ruleKeeps(row models.Row, rule models.FilterRule) bool {
	matched := matchFilter(row, rule.Structured)
	if rule.Type == models.FilterExclusion {
		return !matched
	}
	return matched
}

// matchFilter evaluates one comparison. A missing or blank value matches only
// is_empty, so negated operators never match it either.
func matchFilter(row models.Row, sf *models.StructuredFilter) bool {
	v := row[sf.Field]
	if models.IsBlank(v) {
		return sf.Op == models.OpIsEmpty
	}

	switch sf.Op {
	case models.OpIsEmpty:
		return false
	case models.OpIsNotEmpty:
		return true
	case models.OpEquals:
		return valuesEqual(v, sf.Value, sf.Type)
	case models.OpNotEquals:
		return !valuesEqual(v, sf.Value, sf.Type)
	case models.OpContains:
		return stringTest(v, sf.Value, strings.Contains)
	case models.OpNotContains:
		return !stringTest(v, sf.Value, strings.Contains)
	case models.OpStartsWith:
		return stringTest(v, sf.Value, strings.HasPrefix)
	case models.OpEndsWith:
		return stringTest(v, sf.Value, strings.HasSuffix)
	case models.OpIn:
		for _, candidate := range filterValueList(sf.Value) {
			if valuesEqual(v, candidate, sf.Type) {
				return true
			}
		}
		return false
	case models.OpGreater, models.OpGreaterEq, models.OpLess, models.OpLessEq:
		c, ok := compareOrdered(v, sf.Value, sf.Type)
		if !ok {
			return false
		}
		switch sf.Op {
		case models.OpGreater:
			return c > 0
		case models.OpGreaterEq:
			return c >= 0
		case models.OpLess:
			return c < 0
		default:
			return c <= 0
		}
	}
	return false
}

// valuesEqual compares numerically or by date when the filter type asks for it.
// String and enum filters compare exactly, ignoring case, so "007" never equals "7".
// Untyped filters compare numerically only when both sides are numbers, not strings.
func valuesEqual(v, want any, typ models.FilterValueType) bool {
	switch typ {
	case models.FilterValueDate:
		c, ok := compareDates(v, want)
		return ok && c == 0
	case models.FilterValueNumber:
		c, ok := compareNumbers(v, want)
		return ok && c == 0
	case models.FilterValueString, models.FilterValueEnum:
		return stringsEqualFold(v, want)
	}
	if isNumberValue(v) && isNumberValue(want) {
		c, ok := compareNumbers(v, want)
		return ok && c == 0
	}
	return stringsEqualFold(v, want)
}

// isNumberValue reports whether v holds a numeric type rather than text.
func isNumberValue(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32, json.Number:
		return true
	}
	return false
}

func stringsEqualFold(v, want any) bool {
	a, okA := jsonutil.TrimmedString(v)
	b, okB := jsonutil.TrimmedString(want)
	return okA && okB && strings.EqualFold(a, b)
}

func stringTest(v, want any, test func(s, substr string) bool) bool {
	a, okA := jsonutil.ScalarString(v)
	b, okB := jsonutil.ScalarString(want)
	if !okA || !okB {
		return false
	}
	return test(strings.ToLower(a), strings.ToLower(strings.TrimSpace(b)))
}

// compareOrdered compares two values as dates when typ is date and as numbers
// otherwise, falling back to dates when neither side is numeric.
func compareOrdered(v, want any, typ models.FilterValueType) (int, bool) {
	if typ == models.FilterValueDate {
		return compareDates(v, want)
	}
	if c, ok := compareNumbers(v, want); ok {
		return c, true
	}
	if typ == models.FilterValueNumber {
		return 0, false
	}
	return compareDates(v, want)
}

func compareNumbers(a, b any) (int, bool) {
	x, ok := filterNumber(a)
	if !ok {
		return 0, false
	}
	y, ok := filterNumber(b)
	if !ok {
		return 0, false
	}
	return x.Cmp(y), true
}

func compareDates(a, b any) (int, bool) {
	x, ok := ParseTimestamp(a)
	if !ok {
		return 0, false
	}
	y, ok := ParseTimestamp(b)
	if !ok {
		return 0, false
	}
	return x.Compare(y), true
}

// filterNumber parses a value as a number, tolerating currency and unit tokens.
func filterNumber(v any) (decimal.Decimal, bool) {
	cleaned, ok := CleanNumber(v, nil).(string)
	if !ok {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// filterValueList expands the value of an in filter: a list, or a comma-separated string.
func filterValueList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case string:
		parts := strings.Split(t, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	case nil:
		return nil
	default:
		return []any{t}
	}
}

// columnsOf returns the sorted union of keys across rows.
func columnsOf(rows []models.Row) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
