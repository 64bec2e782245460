package services

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ekaya-inc/haulflow/pkg/jsonutil"
	"github.com/ekaya-inc/haulflow/pkg/models"
)

// Every cleaner in this file is total: it accepts any scalar, never panics, and
// returns nil for nil or blank input. Unusable values degrade to nil (or pass through
// unchanged where noted) instead of failing the row.

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05.000Z"
)

// DefaultStripSuffixes are the currency and unit tokens removed from number fields when
// a rule does not list its own.
var DefaultStripSuffixes = []string{
	"£", "$", "€", "GBP", "USD", "EUR",
	"km", "kms", "mi", "miles", "kg", "kgs", "t", "tonnes",
}

var (
	repeatedSlash = regexp.MustCompile(`/{2,}`)
	repeatedDash  = regexp.MustCompile(`-{2,}`)
	repeatedDot   = regexp.MustCompile(`\.{2,}`)

	isoDateRe     = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
	isoDateTimeRe = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})[T ](.+)$`)
	dayFirstRe    = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2}|\d{4})(?:[ T](\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)

	numericRe        = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)
	thousandsCommaRe = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)
	nonIntegerChars  = regexp.MustCompile(`[^0-9+\-.]`)
	nonDigits        = regexp.MustCompile(`\D`)
	registrationSeps = regexp.MustCompile(`[\s\-_]+`)
	whitespaceRuns   = regexp.MustCompile(`\s+`)
)

// fallbackLayouts are tried, in order, when none of the explicit date shapes match.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 06",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Monday, 2 January 2006",
	"Mon, 2 Jan 2006",
	"20060102",
}

// cleanerInput returns the trimmed string form of v, or false when v is blank or not a scalar.
func cleanerInput(v any) (string, bool) {
	return jsonutil.TrimmedString(v)
}

// collapseDateSeparators turns doubled separators ("15//01/2025") into single ones.
func collapseDateSeparators(s string) string {
	s = repeatedSlash.ReplaceAllString(s, "/")
	s = repeatedDash.ReplaceAllString(s, "-")
	return repeatedDot.ReplaceAllString(s, ".")
}

// parseFlexibleDate parses the date shapes seen in uploads. Day-before-month is
// preferred when both readings are possible. Values carrying a zone keep it, so the
// written calendar date survives formatting; CleanDateTime converts to UTC itself.
func parseFlexibleDate(raw string) (time.Time, bool) {
	s := collapseDateSeparators(strings.TrimSpace(raw))
	if s == "" {
		return time.Time{}, false
	}

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	if m := isoDateTimeRe.FindStringSubmatch(s); m != nil {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000", "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		// Unrecognised time part: keep the calendar date.
		return buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	if m := dayFirstRe.FindStringSubmatch(s); m != nil {
		first, second, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		day, month := first, second
		if first <= 12 && second > 12 {
			// Only the month-first reading is valid (MM-DD-YYYY).
			day, month = second, first
		}
		t, ok := buildDate(year, month, day)
		if !ok {
			return time.Time{}, false
		}
		if m[4] != "" {
			hour, minute, sec := atoi(m[4]), atoi(m[5]), 0
			if m[6] != "" {
				sec = atoi(m[6])
			}
			if hour > 23 || minute > 59 || sec > 59 {
				return time.Time{}, false
			}
			return t.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(sec)*time.Second), true
		}
		return t, true
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// buildDate validates the calendar date (no 31/02) and returns midnight UTC.
func buildDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// CleanDate normalizes a date to YYYY-MM-DD. Datetimes are truncated to their date.
func CleanDate(v any) any {
	s, ok := cleanerInput(v)
	if !ok {
		return nil
	}
	t, ok := parseFlexibleDate(s)
	if !ok {
		return nil
	}
	return t.Format(dateLayout)
}

// CleanDateTime normalizes a date or datetime to ISO-8601 UTC with milliseconds.
// A date-only value becomes midnight UTC.
func CleanDateTime(v any) any {
	s, ok := cleanerInput(v)
	if !ok {
		return nil
	}
	t, ok := parseFlexibleDate(s)
	if !ok {
		return nil
	}
	return t.UTC().Format(dateTimeLayout)
}

// ParseTimestamp parses a value with the same rules as CleanDateTime.
func ParseTimestamp(v any) (time.Time, bool) {
	s, ok := cleanerInput(v)
	if !ok {
		return time.Time{}, false
	}
	t, ok := parseFlexibleDate(s)
	return t, ok
}

// CleanNumber strips currency and unit tokens from either end (case-insensitive),
// resolves comma decimals ("781,68") and comma thousands ("1,234.56") and returns the
// number as a string: two decimals when fractional, a plain integer otherwise.
func CleanNumber(v any, stripSuffixes []string) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return formatDecimal(decimal.NewFromFloat(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return CleanNumber(t.String(), stripSuffixes)
	}

	s, ok := cleanerInput(v)
	if !ok {
		return nil
	}
	if len(stripSuffixes) == 0 {
		stripSuffixes = DefaultStripSuffixes
	}
	s = stripTokens(s, stripSuffixes)
	s = strings.Join(strings.Fields(s), "")
	s = resolveCommas(s)

	if !numericRe.MatchString(s) {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return formatDecimal(d)
}

func formatDecimal(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.Truncate(0).String()
	}
	return d.StringFixed(2)
}

// stripTokens repeatedly removes any of tokens from the start or end of s, longest
// tokens first, until nothing more can be removed.
func stripTokens(s string, tokens []string) string {
	ordered := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			ordered = append(ordered, t)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })

	for changed := true; changed; {
		changed = false
		for _, tok := range ordered {
			n := len(tok)
			if len(s) < n {
				continue
			}
			if strings.EqualFold(s[:n], tok) {
				s = strings.TrimSpace(s[n:])
				changed = true
				break
			}
			if strings.EqualFold(s[len(s)-n:], tok) {
				s = strings.TrimSpace(s[:len(s)-n])
				changed = true
				break
			}
		}
	}
	return s
}

// resolveCommas rewrites comma separators into a plain dotted decimal.
func resolveCommas(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	if strings.Contains(s, ".") {
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// 1.234,56
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		// 1,234.56
		return strings.ReplaceAll(s, ",", "")
	}
	if thousandsCommaRe.MatchString(s) {
		return strings.ReplaceAll(s, ",", "")
	}
	if strings.Count(s, ",") == 1 {
		return strings.Replace(s, ",", ".", 1)
	}
	return s
}

// CleanInteger keeps digits and sign characters, parses the remainder and rounds
// fractional input to the nearest integer.
func CleanInteger(v any) any {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return int(math.Round(t))
	}

	s, ok := cleanerInput(v)
	if !ok {
		return nil
	}
	s = nonIntegerChars.ReplaceAllString(s, "")
	if s == "" || !numericRe.MatchString(s) {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return int(math.Round(f))
}

// CleanPersonName capitalizes the first letter of each space-separated word and
// lowercases the rest, so "mary-jane" becomes "Mary-jane".
// No spelling correction is attempted.
func CleanPersonName(v any) any {
	s, ok := cleanerInput(v)
	if !ok {
		return nil
	}
	// A Caser is stateful, so each call builds its own.
	lower := cases.Lower(language.Und)
	words := strings.Fields(s)
	for i, w := range words {
		w = lower.String(w)
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// CleanEmail lowercases and trims an email address.
func CleanEmail(v any) any {
	s, ok := cleanerInput(v)
	if !ok {
		return nil
	}
	return strings.ToLower(s)
}

// CleanPhone keeps digits only when at least ten remain; shorter values are returned
// trimmed but otherwise unchanged.
func CleanPhone(v any) any {
	s, ok := cleanerInput(v)
	if !ok {
		return nil
	}
	digits := nonDigits.ReplaceAllString(s, "")
	if len(digits) >= 10 {
		return digits
	}
	return s
}

// CleanRegistration uppercases a plate and collapses dash, underscore and whitespace
// runs into single spaces.
func CleanRegistration(v any) any {
	s, ok := cleanerInput(v)
	if !ok {
		return nil
	}
	s = registrationSeps.ReplaceAllString(strings.ToUpper(s), " ")
	return strings.TrimSpace(s)
}

// CleanUUID trims an identifier. Non-string scalars pass through untouched.
func CleanUUID(v any) any {
	if models.IsBlank(v) {
		return nil
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s)
	}
	return v
}

// collapseSpaces trims and collapses internal whitespace runs.
func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}
