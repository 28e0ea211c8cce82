package intercept

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/drivewatch/internal/model"
)

func mustParse(t *testing.T, raw string) model.ActionSequence {
	t.Helper()
	actions, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	return actions
}

func TestParseBracketArrayWithProse(t *testing.T) {
	raw := "Sure! Here are the actions:\n```json\n" +
		`[{"name":"trigger_steering_vibration","arguments":{"pattern":"short"}},` +
		`{"name":"log_safety_event","arguments":{"message":"lane"}}]` +
		"\n```\nDrive safe."

	got := mustParse(t, raw)
	want := model.ActionSequence{
		model.NewAction("trigger_steering_vibration", "pattern", "short"),
		model.NewAction("log_safety_event", "message", "lane"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSingleObject(t *testing.T) {
	got := mustParse(t, `Answer: {"name":"request_safe_mode","arguments":{}}`)
	want := model.ActionSequence{model.NewAction("request_safe_mode")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDropsUnusableEntries(t *testing.T) {
	raw := `[{"name":"trigger_hud_warning"},{"arguments":{"a":1}},{"name":"  "},42,"x",{"name":7}]`
	got := mustParse(t, raw)
	if len(got) != 1 || got[0].Name != "trigger_hud_warning" {
		t.Fatalf("expected only trigger_hud_warning, got %v", got.Names())
	}
	if got[0].Arguments.Len() != 0 {
		t.Errorf("expected empty arguments, got %d keys", got[0].Arguments.Len())
	}
}

func TestParseNonObjectArgumentsBecomeEmpty(t *testing.T) {
	got := mustParse(t, `[{"name":"trigger_voice_prompt","arguments":"hello"}]`)
	if got[0].Arguments.Len() != 0 {
		t.Errorf("expected empty arguments, got %v", got[0].Arguments.Map())
	}
}

func TestParseTaggedLooseArguments(t *testing.T) {
	raw := "<start_function_call>call:escalate_warning_level{level:<escape>Critical<escape>}<end_function_call>"
	got := mustParse(t, raw)
	want := model.ActionSequence{model.NewAction("escalate_warning_level", "level", "Critical")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTaggedMultipleBlocksSkipsMalformed(t *testing.T) {
	raw := "thinking...\n" +
		"<start_function_call>call:trigger_voice_prompt{message:<escape>Wake up, please<escape>,repeat:2}<end_function_call>\n" +
		"<start_function_call>garbage<end_function_call>\n" +
		"<start_function_call>call:{a:1}<end_function_call>\n" +
		"<start_function_call>call:log_safety_event{\"message\":\"drowsy\"}<end_function_call>"

	got := mustParse(t, raw)
	want := model.ActionSequence{
		model.NewAction("trigger_voice_prompt", "message", "Wake up, please", "repeat", int64(2)),
		model.NewAction("log_safety_event", "message", "drowsy"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTaggedNestedArguments(t *testing.T) {
	raw := `<start_function_call>call:trigger_cluster_visual_warning{icon:"lane",ctx:{zone:left,level:2},tags:[1,2]}<end_function_call>`
	actions, strategy, err := ParseWithStrategy(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategy != StrategyTaggedCalls {
		t.Errorf("expected tagged_calls strategy, got %s", strategy)
	}
	args := actions[0].Arguments
	if got := args.Keys(); !cmp.Equal(got, []string{"icon", "ctx", "tags"}) {
		t.Fatalf("unexpected keys %v", got)
	}
	ctx, _ := args.Get("ctx")
	nested, ok := ctx.(model.Arguments)
	if !ok {
		t.Fatalf("expected nested loose object, got %T", ctx)
	}
	if v, _ := nested.Get("level"); v != int64(2) {
		t.Errorf("expected nested level 2, got %v", v)
	}
	tags, _ := args.Get("tags")
	if !cmp.Equal(tags, []any{float64(1), float64(2)}) {
		t.Errorf("expected JSON array, got %#v", tags)
	}
}

func TestParseEmptyOutputIsExtractionFailed(t *testing.T) {
	for _, raw := range []string{"", "   ", "I cannot help with that."} {
		_, err := Parse(raw)
		if !errors.Is(err, ErrExtractionFailed) {
			t.Errorf("Parse(%q): expected ErrExtractionFailed, got %v", raw, err)
		}
	}
}

func TestParseValidArrayWithoutActionsIsEmpty(t *testing.T) {
	for _, raw := range []string{
		`[]`,
		"No action needed: []",
		`[{"arguments":{}}]`,
		"```json\n[{\"name\":\"  \"}]\n```",
	} {
		actions, strategy, err := ParseWithStrategy(raw)
		if err != nil {
			t.Errorf("ParseWithStrategy(%q): unexpected error %v", raw, err)
			continue
		}
		if actions == nil || len(actions) != 0 {
			t.Errorf("ParseWithStrategy(%q): expected empty non-nil sequence, got %#v", raw, actions)
		}
		if strategy != StrategyBracketArray {
			t.Errorf("ParseWithStrategy(%q): expected bracket_array, got %s", raw, strategy)
		}
	}
}

func TestParseInvalidArraySpanFallsThrough(t *testing.T) {
	// The bracket span is not JSON, so the object strategy runs.
	actions, strategy, err := ParseWithStrategy(`see [1, {"name":"voice_prompt","arguments":{"message":"hi"}} here]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategy != StrategyBracketObject {
		t.Errorf("expected bracket_object, got %s", strategy)
	}
	if len(actions) != 1 || actions[0].Name != "voice_prompt" {
		t.Errorf("unexpected actions %+v", actions)
	}
}

func TestParseStructureWithoutActionsIsMalformed(t *testing.T) {
	for _, raw := range []string{
		`{"arguments":{}}`,
		`{"foo":"bar"}`,
		"<start_function_call>nope<end_function_call>",
	} {
		_, err := Parse(raw)
		if !errors.Is(err, ErrMalformedAction) {
			t.Errorf("Parse(%q): expected ErrMalformedAction, got %v", raw, err)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Parse(%q): expected *ParseError, got %T", raw, err)
		}
	}
}

func TestParseArrayWinsOverObject(t *testing.T) {
	_, strategy, err := ParseWithStrategy(`[{"name":"a","arguments":{"x":{"y":1}}}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategy != StrategyBracketArray {
		t.Errorf("expected bracket_array, got %s", strategy)
	}
}

func TestParseInvalidArraySpanFallsThroughToTagged(t *testing.T) {
	// The bracket span is not JSON, so the tagged strategy gets its turn.
	raw := `<start_function_call>call:trigger_hud_warning{items:[a,b]}<end_function_call>`
	_, strategy, err := ParseWithStrategy(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategy != StrategyTaggedCalls {
		t.Errorf("expected tagged_calls, got %s", strategy)
	}
}

func TestParseRoundTrip(t *testing.T) {
	in := model.ActionSequence{
		model.NewAction("trigger_drowsiness_alert_sound", "volume", "high"),
		model.NewAction("log_safety_event", "message", "drowsy", "count", float64(3)),
		model.NewAction("request_safe_mode"),
	}
	data, err := EncodeArray(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := mustParse(t, string(data))
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeArrayNil(t *testing.T) {
	data, err := EncodeArray(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("expected [], got %s", data)
	}
}

func TestCoerceLooseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"  ", nil},
		{"<escape>a, {b}<escape>", "a, {b}"},
		{`"quoted"`, "quoted"},
		{"TRUE", true},
		{"False", false},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"3.5", 3.5},
		{"NaN", "NaN"},
		{"Inf", "Inf"},
		{`{"a":1}`, map[string]any{"a": float64(1)}},
		{"[1,2]", []any{float64(1), float64(2)}},
		{"[a,b]", "[a,b]"},
		{"{}", map[string]any{}},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		got := CoerceLooseValue(tt.in)
		if !cmp.Equal(got, tt.want) {
			t.Errorf("CoerceLooseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestSplitTopLevel(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a:1", []string{"a:1"}},
		{"a:1,b:2", []string{"a:1", "b:2"}},
		{"a:{x:1,y:2},b:[1,2]", []string{"a:{x:1,y:2}", "b:[1,2]"}},
		{"m:<escape>x,y}]<escape>,n:1", []string{"m:<escape>x,y}]<escape>", "n:1"}},
		{"a:}],b:1", []string{"a:}]", "b:1"}},
	}
	for _, tt := range tests {
		got := SplitTopLevel(tt.in)
		if !cmp.Equal(got, tt.want) {
			t.Errorf("SplitTopLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScanLooseObject(t *testing.T) {
	args := ScanLooseObject(`{ "level" : critical , noColon, :x, speed:90 }`)
	if got := args.Keys(); !cmp.Equal(got, []string{"level", "speed"}) {
		t.Fatalf("unexpected keys %v", got)
	}
	if v, _ := args.Get("level"); v != "critical" {
		t.Errorf("expected critical, got %v", v)
	}
	if v, _ := args.Get("speed"); v != int64(90) {
		t.Errorf("expected 90, got %v", v)
	}

	if ScanLooseObject("not an object").Len() != 0 {
		t.Error("expected empty arguments for non-object text")
	}
}
