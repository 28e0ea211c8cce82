package intercept

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/drivewatch/internal/model"
)

// Tagged call-block grammar:
//
//	<start_function_call>call:<name>{<loose-object>}<end_function_call>
const (
	StartTag     = "<start_function_call>"
	EndTag       = "<end_function_call>"
	CallPrefix   = "call:"
	EscapeMarker = "<escape>"
)

// ParseTaggedCalls scans every start/end tag pair in order. Blocks whose
// body is not call:<name>{...} are skipped without aborting the scan.
// It fails only when no block yields a call.
func ParseTaggedCalls(text string) (model.ActionSequence, error) {
	var actions model.ActionSequence
	blocks := 0

	pos := 0
	for {
		s := strings.Index(text[pos:], StartTag)
		if s == -1 {
			break
		}
		bodyStart := pos + s + len(StartTag)
		e := strings.Index(text[bodyStart:], EndTag)
		if e == -1 {
			break
		}
		bodyEnd := bodyStart + e
		blocks++

		if a, ok := parseCallBlock(text[bodyStart:bodyEnd]); ok {
			actions = append(actions, a)
		}
		pos = bodyEnd + len(EndTag)
	}

	if len(actions) == 0 {
		if blocks > 0 {
			return nil, malformed(StrategyTaggedCalls, fmt.Sprintf("%d blocks, none well-formed", blocks))
		}
		return nil, extractionFailed(StrategyTaggedCalls, "no call blocks")
	}
	return actions, nil
}

// parseCallBlock parses the body between the tags. The name is the text
// between "call:" and the first '{'. Arguments are strict JSON when they
// parse as such and the loose grammar otherwise.
func parseCallBlock(body string) (model.Action, bool) {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, CallPrefix) {
		return model.Action{}, false
	}
	brace := strings.IndexByte(body, '{')
	if brace <= len(CallPrefix) || !strings.HasSuffix(body, "}") {
		return model.Action{}, false
	}
	name := strings.TrimSpace(body[len(CallPrefix):brace])
	if name == "" {
		return model.Action{}, false
	}

	argsText := body[brace:]
	var args model.Arguments
	if err := json.Unmarshal([]byte(argsText), &args); err != nil {
		args = ScanLooseObject(argsText)
	}
	return model.Action{Name: name, Arguments: args}, true
}
