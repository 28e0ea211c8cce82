package intercept

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/drivewatch/internal/model"
)

// Strategy identifies which extraction strategy produced a parse result.
type Strategy int

const (
	StrategyNone          Strategy = 0
	StrategyBracketArray  Strategy = 1
	StrategyBracketObject Strategy = 2
	StrategyTaggedCalls   Strategy = 3
)

func (s Strategy) String() string {
	switch s {
	case StrategyBracketArray:
		return "bracket_array"
	case StrategyBracketObject:
		return "bracket_object"
	case StrategyTaggedCalls:
		return "tagged_calls"
	default:
		return "none"
	}
}

// Sentinel kinds for ParseError. Match with errors.Is.
var (
	ErrExtractionFailed = errors.New("extraction failed")
	ErrMalformedAction  = errors.New("malformed action")
)

// ParseError reports why a strategy, or the whole parse, yielded nothing.
type ParseError struct {
	Kind     error // ErrExtractionFailed or ErrMalformedAction
	Strategy Strategy
	Detail   string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Strategy, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Strategy, e.Kind, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Kind }

func extractionFailed(s Strategy, detail string) *ParseError {
	return &ParseError{Kind: ErrExtractionFailed, Strategy: s, Detail: detail}
}

func malformed(s Strategy, detail string) *ParseError {
	return &ParseError{Kind: ErrMalformedAction, Strategy: s, Detail: detail}
}

// Parse converts raw model output into an action sequence.
// See ParseWithStrategy.
func Parse(raw string) (model.ActionSequence, error) {
	actions, _, err := ParseWithStrategy(raw)
	return actions, err
}

// ParseWithStrategy tries, in order: a bracket-matched JSON array, a
// bracket-matched single JSON object, then tagged call blocks. The first
// strategy that yields a result wins. A span that is a valid JSON array
// is a result even when it holds no usable entry: "[]" is the model
// choosing no action.
//
// On total failure the returned error is MalformedAction when some
// structure was found but every entry was unusable, ExtractionFailed
// otherwise.
func ParseWithStrategy(raw string) (model.ActionSequence, Strategy, error) {
	sawStructure := false

	actions, err := ParseBracketArray(raw)
	if err == nil {
		return actions, StrategyBracketArray, nil
	}
	if errors.Is(err, ErrMalformedAction) {
		sawStructure = true
	}

	actions, err = ParseBracketObject(raw)
	if err == nil {
		return actions, StrategyBracketObject, nil
	}
	if errors.Is(err, ErrMalformedAction) {
		sawStructure = true
	}

	actions, err = ParseTaggedCalls(raw)
	if err == nil {
		return actions, StrategyTaggedCalls, nil
	}
	if errors.Is(err, ErrMalformedAction) {
		sawStructure = true
	}

	preview := previewText(raw, 120)
	if sawStructure {
		return nil, StrategyNone, malformed(StrategyNone, "no usable action in "+preview)
	}
	return nil, StrategyNone, extractionFailed(StrategyNone, "no tool calls in "+preview)
}

// ParseBracketArray slices from the first '[' to the last ']' and parses
// the span as a JSON array of {name, arguments} objects. Surrounding prose
// and markdown fences are ignored. Entries without a name are dropped, so
// a valid array may decode to an empty, non-nil sequence.
func ParseBracketArray(text string) (model.ActionSequence, error) {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start == -1 || end == -1 || end <= start {
		return nil, extractionFailed(StrategyBracketArray, "no array span")
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &elems); err != nil {
		return nil, extractionFailed(StrategyBracketArray, err.Error())
	}

	actions := decodeActions(elems)
	if actions == nil {
		actions = model.ActionSequence{}
	}
	return actions, nil
}

// ParseBracketObject slices from the first '{' to the last '}' and, if the
// span is one JSON object, returns it as a one-element sequence.
func ParseBracketObject(text string) (model.ActionSequence, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end <= start {
		return nil, extractionFailed(StrategyBracketObject, "no object span")
	}

	span := json.RawMessage(text[start : end+1])
	if !json.Valid(span) {
		return nil, extractionFailed(StrategyBracketObject, "object span is not valid JSON")
	}

	actions := decodeActions([]json.RawMessage{span})
	if len(actions) == 0 {
		return nil, malformed(StrategyBracketObject, "object has no name")
	}
	return actions, nil
}

// decodeActions keeps every element that is an object with a non-blank
// string name. Missing or non-object arguments become an empty map.
func decodeActions(elems []json.RawMessage) model.ActionSequence {
	actions := make(model.ActionSequence, 0, len(elems))
	for _, raw := range elems {
		if a, ok := decodeAction(raw); ok {
			actions = append(actions, a)
		}
	}
	return actions
}

func decodeAction(raw json.RawMessage) (model.Action, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return model.Action{}, false
	}

	var name string
	if err := json.Unmarshal(fields["name"], &name); err != nil {
		return model.Action{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Action{}, false
	}

	var args model.Arguments
	if rawArgs, ok := fields["arguments"]; ok {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			args = model.Arguments{}
		}
	}
	return model.Action{Name: name, Arguments: args}, true
}

func previewText(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "(empty output)"
	}
	if len(s) <= n {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%q...", s[:n])
}
