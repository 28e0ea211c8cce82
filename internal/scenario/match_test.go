package scenario

import (
	"testing"

	"github.com/ppiankov/drivewatch/internal/model"
)

func TestMatchActions(t *testing.T) {
	predicted := model.ActionSequence{
		model.NewAction(model.ActRestRecommendation, "minutes_driven", int64(130)),
		model.NewAction(model.ActLogSafetyEvent, "message", "actions_selected", "count", 1),
	}
	tests := []struct {
		name     string
		expected []ExpectedCall
		want     string
	}{
		{"match with numeric coercion", []ExpectedCall{
			{Name: model.ActRestRecommendation, Arguments: map[string]any{"minutes_driven": 130.0}},
			{Name: model.ActLogSafetyEvent, Arguments: map[string]any{"count": 1, "message": "actions_selected"}},
		}, ReasonMatch},
		{"count", []ExpectedCall{{Name: model.ActRestRecommendation}}, "count_mismatch_expected_1_got_2"},
		{"name", []ExpectedCall{
			{Name: model.ActRestRecommendation, Arguments: map[string]any{"minutes_driven": 130}},
			{Name: model.ActVoicePrompt},
		}, "item_1_name_mismatch"},
		{"args", []ExpectedCall{
			{Name: model.ActRestRecommendation, Arguments: map[string]any{"minutes_driven": 131}},
			{Name: model.ActLogSafetyEvent},
		}, "item_0_args_mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := MatchActions(predicted, tt.expected)
			if reason != tt.want {
				t.Errorf("reason = %q, want %q", reason, tt.want)
			}
			if ok != (tt.want == ReasonMatch) {
				t.Errorf("ok = %v for reason %q", ok, reason)
			}
		})
	}
}

func TestMatchActionsEmpty(t *testing.T) {
	if ok, reason := MatchActions(nil, []ExpectedCall{{Name: "x"}}); ok || reason != ReasonEmptyOutput {
		t.Errorf("got %v %q", ok, reason)
	}
	if ok, reason := MatchActions(nil, nil); !ok || reason != ReasonMatch {
		t.Errorf("empty vs empty: %v %q", ok, reason)
	}
}

func TestMatchText(t *testing.T) {
	expected := []ExpectedCall{{Name: model.ActVoicePrompt, Arguments: map[string]any{"message": "hi"}}}
	tests := []struct {
		name, text, want string
	}{
		{"bare", `[{"name":"trigger_voice_prompt","arguments":{"message":"hi"}}]`, ReasonMatch},
		{"fenced", "Sure:\n```json\n[{\"name\":\"trigger_voice_prompt\",\"arguments\":{\"message\":\"hi\"}}]\n```", ReasonMatch},
		{"blank", "   ", ReasonEmptyOutput},
		{"garbage", "not json", ReasonJSONError},
		{"object", `{"name":"trigger_voice_prompt"}`, ReasonNotAList},
		{"not dict", `[1]`, "item_0_not_dict"},
		{"wrong args", `[{"name":"trigger_voice_prompt","arguments":{"message":"bye"}}]`, "item_0_args_mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, reason := MatchText(tt.text, expected)
			if reason != tt.want {
				t.Errorf("reason = %q, want %q", reason, tt.want)
			}
		})
	}
}
