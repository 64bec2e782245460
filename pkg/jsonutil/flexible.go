package jsonutil

import (
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
)

// ScalarString converts a row value to its string form, handling the types that
// arrive from JSON decoding (string, json.Number, float64, bool) as well as ints.
// Returns false for nil and for non-scalar values.
func ScalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		// Above 2^53 a float no longer holds every integer, and the int64 conversion
		// is undefined past 2^63.
		if math.Abs(t) < 1<<53 && t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// TrimmedString is ScalarString followed by strings.TrimSpace. Blank values report false.
func TrimmedString(v any) (string, bool) {
	s, ok := ScalarString(v)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// DecodeUseNumber decodes JSON from r into dst keeping numbers as json.Number, so
// numeric identifiers survive without float rounding.
func DecodeUseNumber(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(dst)
}
