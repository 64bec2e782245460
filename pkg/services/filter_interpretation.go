package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/ekaya-inc/haulflow/pkg/apperrors"
	"github.com/ekaya-inc/haulflow/pkg/models"
)

var (
	// filterLeadIn strips the words users put in front of the field phrase.
	filterLeadIn = regexp.MustCompile(`(?i)^(?:(?:exclude|remove|drop|include|keep|only|show)\s+)?(?:(?:rows|loads|quotes)\s+)?(?:(?:where|with|if|when)\s+)?`)

	// filterOperator finds the operator between field phrase and value. Alternatives are
	// listed longest first because the leftmost alternative wins at a given position.
	filterOperator = regexp.MustCompile(`(?i)\s*(>=|<=|!=|==|=|>|<)\s*|\s+(is\s+not\s+empty|is\s+empty|is\s+not|does\s+not\s+equal|not\s+equals?|does\s+not\s+contain|not\s+contains?|greater\s+than\s+or\s+equal\s+to|less\s+than\s+or\s+equal\s+to|greater\s+than|more\s+than|less\s+than|fewer\s+than|at\s+least|at\s+most|starts\s+with|begins\s+with|ends\s+with|contains|includes|equals?|over|above|under|below|after|before|is\s+one\s+of|in|is)(?:\s+|$)`)

	filterSpaces = regexp.MustCompile(`\s+`)
)

// filterOperatorWords maps a normalized operator phrase to its operator.
var filterOperatorWords = map[string]models.FilterOp{
	">=":                       models.OpGreaterEq,
	"<=":                       models.OpLessEq,
	"!=":                       models.OpNotEquals,
	"==":                       models.OpEquals,
	"=":                        models.OpEquals,
	">":                        models.OpGreater,
	"<":                        models.OpLess,
	"is not empty":             models.OpIsNotEmpty,
	"is empty":                 models.OpIsEmpty,
	"is not":                   models.OpNotEquals,
	"does not equal":           models.OpNotEquals,
	"not equal":                models.OpNotEquals,
	"not equals":               models.OpNotEquals,
	"does not contain":         models.OpNotContains,
	"not contain":              models.OpNotContains,
	"not contains":             models.OpNotContains,
	"greater than or equal to": models.OpGreaterEq,
	"less than or equal to":    models.OpLessEq,
	"greater than":             models.OpGreater,
	"more than":                models.OpGreater,
	"less than":                models.OpLess,
	"fewer than":               models.OpLess,
	"at least":                 models.OpGreaterEq,
	"at most":                  models.OpLessEq,
	"starts with":              models.OpStartsWith,
	"begins with":              models.OpStartsWith,
	"ends with":                models.OpEndsWith,
	"contains":                 models.OpContains,
	"includes":                 models.OpContains,
	"equal":                    models.OpEquals,
	"equals":                   models.OpEquals,
	"over":                     models.OpGreater,
	"above":                    models.OpGreater,
	"under":                    models.OpLess,
	"below":                    models.OpLess,
	"after":                    models.OpGreater,
	"before":                   models.OpLess,
	"is one of":                models.OpIn,
	"in":                       models.OpIn,
	"is":                       models.OpEquals,
}

// InterpretFilterRule turns a free-text rule such as "collection_city contains London"
// or "quoted price > 500" into a structured filter over columns. The field phrase is
// resolved to a column by normalized name, then by edit distance.
func InterpretFilterRule(text string, columns []string) (*models.StructuredFilter, error) {
	body := strings.TrimSpace(filterLeadIn.ReplaceAllString(strings.TrimSpace(text), ""))
	if body == "" {
		return nil, fmt.Errorf("%w: empty rule", apperrors.ErrInvalidFilter)
	}

	loc := filterOperator.FindStringSubmatchIndex(body)
	if loc == nil || loc[0] == 0 {
		return nil, fmt.Errorf("%w: no operator found in %q", apperrors.ErrInvalidFilter, text)
	}

	var phrase string
	if loc[2] >= 0 {
		phrase = body[loc[2]:loc[3]]
	} else {
		phrase = body[loc[4]:loc[5]]
	}
	op, ok := filterOperatorWords[strings.ToLower(filterSpaces.ReplaceAllString(phrase, " "))]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported operator %q", apperrors.ErrInvalidFilter, phrase)
	}

	field, ok := resolveFilterColumn(body[:loc[0]], columns)
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", apperrors.ErrInvalidFilter, strings.TrimSpace(body[:loc[0]]))
	}

	raw := strings.Trim(strings.TrimSpace(body[loc[1]:]), `"'`)
	sf := &models.StructuredFilter{Field: field, Op: op, Type: models.FilterValueString}

	if op == models.OpIsEmpty || op == models.OpIsNotEmpty {
		if raw != "" {
			return nil, fmt.Errorf("%w: %s takes no value", apperrors.ErrInvalidFilter, op)
		}
		return sf, nil
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: missing value in %q", apperrors.ErrInvalidFilter, text)
	}

	if op == models.OpIn {
		values := filterValueList(raw)
		sf.Value = values
		if isEnumColumn(field) {
			sf.Type = models.FilterValueEnum
		}
		return sf, nil
	}

	switch {
	case isNumericLiteral(raw):
		d, _ := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
		sf.Value = d.InexactFloat64()
		sf.Type = models.FilterValueNumber
	case CleanDate(raw) != nil:
		sf.Value = CleanDate(raw)
		sf.Type = models.FilterValueDate
	case isEnumColumn(field):
		if canonical, ok := models.IsCanonical(enumToken(raw), enumValuesOf(field)); ok {
			raw = canonical
		}
		sf.Value = raw
		sf.Type = models.FilterValueEnum
	default:
		sf.Value = raw
	}

	switch op {
	case models.OpGreater, models.OpGreaterEq, models.OpLess, models.OpLessEq:
		if sf.Type != models.FilterValueNumber && sf.Type != models.FilterValueDate {
			return nil, fmt.Errorf("%w: %s needs a number or a date, got %q", apperrors.ErrInvalidFilter, op, raw)
		}
	}
	return sf, nil
}

var numericLiteral = regexp.MustCompile(`^[+-]?(\d{1,3}(,\d{3})+|\d+)(\.\d+)?$`)

func isNumericLiteral(s string) bool {
	return numericLiteral.MatchString(s)
}

// resolveFilterColumn matches a field phrase against the columns: exact name, then
// normalized tokens ("Quoted Price" -> quoted_price), then the closest name within
// edit distance 2.
func resolveFilterColumn(phrase string, columns []string) (string, bool) {
	phrase = strings.Trim(strings.TrimSpace(phrase), `"'`)
	if phrase == "" {
		return "", false
	}
	for _, c := range columns {
		if c == phrase {
			return c, true
		}
	}

	want := normalizeHeader(phrase)
	for _, c := range columns {
		if normalizeHeader(c) == want {
			return c, true
		}
	}

	best, bestDist := "", 3
	for _, c := range columns {
		if d := fuzzy.LevenshteinDistance(want, normalizeHeader(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}

func isEnumColumn(field string) bool {
	return enumValuesOf(field) != nil
}

func enumValuesOf(field string) []string {
	for _, col := range models.PostJoinEnumColumns() {
		if col.Name == field {
			return col.Values
		}
	}
	return nil
}
