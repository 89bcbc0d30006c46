package dashboard

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// floatPrefix matches the longest leading decimal literal of a string.
var floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// NumericValue reports whether v is a finite number, either natively or as a
// string that is entirely a decimal literal once surrounding space is trimmed.
func NumericValue(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" || !floatPrefix.MatchString(s) {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CoerceFloat converts v to a chart value. Strings contribute their leading
// numeric prefix ("12kg" is 12); anything unparseable is 0.
func CoerceFloat(v any) float64 {
	if f, ok := NumericValue(v); ok {
		return f
	}
	s, ok := v.(string)
	if !ok {
		return 0
	}
	m := floatPrefix.FindString(strings.TrimLeft(s, " \t\n\r"))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// FormatCell renders a table cell: numbers with two decimals, null as empty,
// everything else unchanged.
func FormatCell(v any) string {
	if f, ok := NumericValue(v); ok {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case []any, map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// FormatLabel renders an axis label; unlike FormatCell it keeps numbers as written.
func FormatLabel(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return FormatCell(v)
	}
}
