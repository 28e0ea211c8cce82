package scenario

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/ppiankov/drivewatch/internal/model"
)

// Match reasons.
const (
	ReasonMatch       = "match"
	ReasonEmptyOutput = "empty_output"
	ReasonJSONError   = "json_parse_error"
	ReasonNotAList    = "not_a_list"
)

// MatchActions compares predicted against expected in order. Names must be
// equal and arguments must hold the same keys with equal values; numbers
// compare by value regardless of Go type.
func MatchActions(predicted model.ActionSequence, expected []ExpectedCall) (bool, string) {
	if len(predicted) == 0 && len(expected) > 0 {
		return false, ReasonEmptyOutput
	}
	if len(predicted) != len(expected) {
		return false, fmt.Sprintf("count_mismatch_expected_%d_got_%d", len(expected), len(predicted))
	}
	for i, exp := range expected {
		got := predicted[i]
		if got.Name != exp.Name {
			return false, fmt.Sprintf("item_%d_name_mismatch", i)
		}
		if !argsEqual(got.Arguments.Map(), exp.Arguments) {
			return false, fmt.Sprintf("item_%d_args_mismatch", i)
		}
	}
	return true, ReasonMatch
}

// MatchText scores raw model output that is expected to be a bare JSON
// array of calls. A fenced ```json block is accepted as a fallback.
func MatchText(predicted string, expected []ExpectedCall) (bool, string) {
	cleaned := strings.TrimSpace(predicted)
	if cleaned == "" {
		return false, ReasonEmptyOutput
	}

	var raw any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		fenced, ok := fencedJSON(cleaned)
		if !ok || json.Unmarshal([]byte(fenced), &raw) != nil {
			return false, ReasonJSONError
		}
	}
	items, ok := raw.([]any)
	if !ok {
		return false, ReasonNotAList
	}

	data, _ := json.Marshal(items)
	var actions model.ActionSequence
	if err := json.Unmarshal(data, &actions); err != nil {
		for i, item := range items {
			if _, ok := item.(map[string]any); !ok {
				return false, fmt.Sprintf("item_%d_not_dict", i)
			}
		}
		return false, ReasonJSONError
	}
	return MatchActions(actions, expected)
}

func fencedJSON(s string) (string, bool) {
	_, rest, ok := strings.Cut(s, "```json")
	if !ok {
		return "", false
	}
	body, _, _ := strings.Cut(rest, "```")
	return strings.TrimSpace(body), true
}

func argsEqual(got, want map[string]any) bool {
	if len(got) != len(want) {
		return false
	}
	for k, w := range want {
		g, ok := got[k]
		if !ok || !valueEqual(g, w) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if aa, ok := a.(model.Arguments); ok {
		a = aa.Map()
	}
	if bb, ok := b.(model.Arguments); ok {
		b = bb.Map()
	}
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if aok && bok {
		return argsEqual(am, bm)
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
