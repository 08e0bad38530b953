package mapping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/syncforge/ingestion/internal/model"
)

var currencySymbols = regexp.MustCompile(`[$€£¥₩₹]`)
var whitespaceRun = regexp.MustCompile(`[\s\x{00A0}]+`)

// applyTransform dispatches a named transform (spec.md §4.B). An unknown
// name is a MappingError; unparseable numeric/boolean input yields nil
// rather than a fatal error, per spec.
func applyTransform(t *model.Transform, value interface{}) (interface{}, error) {
	switch t.Name {
	case "uppercase":
		if s, ok := value.(string); ok {
			return strings.ToUpper(s), nil
		}
		return value, nil
	case "lowercase":
		if s, ok := value.(string); ok {
			return strings.ToLower(s), nil
		}
		return value, nil
	case "trim":
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s), nil
		}
		return value, nil
	case "default":
		if value == nil {
			return t.Parameters["value"], nil
		}
		return value, nil
	case "split":
		delim := stringParam(t.Parameters, "delimiter", ",")
		s, ok := value.(string)
		if !ok {
			return value, nil
		}
		parts := strings.Split(s, delim)
		out := make([]interface{}, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	case "join":
		delim := stringParam(t.Parameters, "delimiter", ",")
		arr, ok := value.([]interface{})
		if !ok {
			return value, nil
		}
		parts := make([]string, len(arr))
		for i, v := range arr {
			parts[i] = fmt.Sprintf("%v", v)
		}
		return strings.Join(parts, delim), nil
	case "format_number":
		decimals := 2
		if d, ok := t.Parameters["decimals"]; ok {
			if f, ok := toFloat(d); ok {
				decimals = int(f)
			}
		}
		f, ok := toFloat(value)
		if !ok {
			return value, nil
		}
		return strconv.FormatFloat(f, 'f', decimals, 64), nil
	case "regex_replace":
		// Literal substring replacement, not a true regular expression:
		// the pattern parameter is matched as plain text.
		pattern := stringParam(t.Parameters, "pattern", "")
		replacement := stringParam(t.Parameters, "replacement", "")
		s, ok := value.(string)
		if !ok {
			return value, nil
		}
		return strings.ReplaceAll(s, pattern, replacement), nil
	case "to_bool":
		return toBool(value), nil
	case "to_number":
		return parseNumber(value), nil
	default:
		return nil, &model.MappingError{Message: fmt.Sprintf("unknown transform %q", t.Name)}
	}
}

func stringParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

var trueStrings = map[string]bool{"true": true, "t": true, "yes": true, "y": true, "on": true, "1": true}
var falseStrings = map[string]bool{"false": true, "f": true, "no": true, "n": true, "off": true, "0": true}

// toBool implements the to_bool transform's acceptance rules from spec.md §4.B.
func toBool(v interface{}) interface{} {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if trueStrings[s] {
			return true
		}
		if falseStrings[s] {
			return false
		}
		return nil
	default:
		return nil
	}
}

// parseNumber implements the to_number transform from spec.md §4.B: strips
// currency symbols and whitespace (including NBSP), handles US and EU
// grouping/decimal conventions, and parenthesized negatives. Unparseable
// input returns nil, never an error.
func parseNumber(v interface{}) interface{} {
	switch t := v.(type) {
	case float64, int, int64:
		return t
	case string:
		f, ok := parseNumberString(t)
		if !ok {
			return nil
		}
		return f
	default:
		return nil
	}
}

func parseNumberString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = currencySymbols.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')

	var normalized string
	switch {
	case lastComma != -1 && lastDot != -1:
		if lastComma > lastDot {
			// EU format: 1.234,56 -> strip dots, comma is decimal.
			normalized = strings.ReplaceAll(s, ".", "")
			normalized = strings.Replace(normalized, ",", ".", 1)
		} else {
			// US format: 1,234.56 -> strip commas.
			normalized = strings.ReplaceAll(s, ",", "")
		}
	case lastComma != -1:
		// Only commas present: treat as EU decimal separator unless it
		// looks like a thousands grouping (exactly 3 trailing digits).
		if len(s)-lastComma-1 == 3 && strings.Count(s, ",") >= 1 {
			normalized = strings.ReplaceAll(s, ",", "")
		} else {
			normalized = strings.Replace(s, ",", ".", 1)
		}
	default:
		normalized = s
	}

	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}
