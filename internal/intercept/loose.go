package intercept

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/drivewatch/internal/model"
)

// ScanLooseObject parses the loose object grammar used inside tagged call
// blocks: {key:value,key:value}. Keys may be bare or quoted. Text that is
// not brace-delimited yields an empty map.
func ScanLooseObject(text string) model.Arguments {
	var args model.Arguments
	t := strings.TrimSpace(text)
	if len(t) < 2 || t[0] != '{' || t[len(t)-1] != '}' {
		return args
	}

	for _, field := range SplitTopLevel(t[1 : len(t)-1]) {
		colon := strings.IndexByte(field, ':')
		if colon == -1 {
			continue
		}
		key := strings.Trim(strings.TrimSpace(field[:colon]), `"`)
		if key == "" {
			continue
		}
		args.Set(key, CoerceLooseValue(field[colon+1:]))
	}
	return args
}

// SplitTopLevel splits s on commas that sit at nesting depth zero and
// outside an escape-marker literal. It is a single pass: braces and
// brackets move a depth counter, and each EscapeMarker toggles literal
// mode, in which commas, braces and brackets are plain text.
func SplitTopLevel(s string) []string {
	var parts []string
	depth := 0
	inLiteral := false
	start := 0

	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], EscapeMarker) {
			inLiteral = !inLiteral
			i += len(EscapeMarker)
			continue
		}
		if !inLiteral {
			switch s[i] {
			case '{', '[':
				depth++
			case '}', ']':
				if depth > 0 {
					depth--
				}
			case ',':
				if depth == 0 {
					parts = append(parts, s[start:i])
					start = i + 1
				}
			}
		}
		i++
	}
	if tail := s[start:]; strings.TrimSpace(tail) != "" || len(parts) > 0 {
		parts = append(parts, tail)
	}
	return parts
}

// CoerceLooseValue converts one raw loose value, trying in order:
// escaped literal, quoted string, bool, integer, float, nested JSON,
// nested loose object, raw string. Blank input is nil.
func CoerceLooseValue(raw string) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}

	if len(v) >= 2*len(EscapeMarker) && strings.HasPrefix(v, EscapeMarker) && strings.HasSuffix(v, EscapeMarker) {
		return v[len(EscapeMarker) : len(v)-len(EscapeMarker)]
	}
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	if strings.EqualFold(v, "true") {
		return true
	}
	if strings.EqualFold(v, "false") {
		return false
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}

	isObject := v[0] == '{' && v[len(v)-1] == '}'
	isArray := v[0] == '[' && v[len(v)-1] == ']'
	if isObject || isArray {
		var nested any
		if err := json.Unmarshal([]byte(v), &nested); err == nil {
			return nested
		}
	}
	if isObject {
		if inner := ScanLooseObject(v); inner.Len() > 0 {
			return inner
		}
	}
	return v
}
