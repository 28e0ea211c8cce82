package rpc

import "github.com/ppiankov/drivewatch/internal/model"

// ParseRequest carries raw model output.
type ParseRequest struct {
	Text string `json:"text"`
}

// ParseResponse lists the extracted actions. Error holds the failure kind
// (extraction_failed, malformed_action) when nothing was extracted.
type ParseResponse struct {
	Actions  model.ActionSequence `json:"actions"`
	Strategy string               `json:"strategy"`
	Error    string               `json:"error,omitempty"`
}

// GateRequest evaluates Context, or the session context when nil.
type GateRequest struct {
	Context *model.Context `json:"context,omitempty"`
}

// ActionsRequest carries a batch for Filter and Apply.
type ActionsRequest struct {
	Actions model.ActionSequence `json:"actions"`
}

// RunRequest optionally switches scenario, replaces the context and sets
// the prompt, in that order, before running the pipeline.
type RunRequest struct {
	Scenario string         `json:"scenario,omitempty"`
	Context  *model.Context `json:"context,omitempty"`
	Prompt   *string        `json:"prompt,omitempty"`
}

// ScenarioRequest names a built-in demo by 1-based index or title.
type ScenarioRequest struct {
	Scenario string `json:"scenario"`
}

// ScenarioResponse describes the session after a scenario switch.
type ScenarioResponse struct {
	Title   string           `json:"title"`
	Prompt  string           `json:"prompt"`
	Context model.Context    `json:"context"`
	Gate    model.GateResult `json:"gate"`
}

// ResetResponse acknowledges Reset.
type ResetResponse struct {
	Status string `json:"status"`
}
