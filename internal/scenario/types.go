package scenario

import (
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/drivewatch/internal/model"
)

// Demo is a preset driving situation paired with a driver prompt.
type Demo struct {
	Title   string        `json:"title" yaml:"title"`
	Prompt  string        `json:"prompt" yaml:"prompt"`
	Context model.Context `json:"context" yaml:"context"`
}

// ExpectedCall is one tool call an evaluation case expects, compared
// strictly by name and arguments.
type ExpectedCall struct {
	Name      string         `yaml:"name"`
	Arguments map[string]any `yaml:"arguments,omitempty"`
}

// Expect lists the assertions for one case. Empty fields are not checked.
type Expect struct {
	Event        string         `yaml:"event,omitempty"`
	Actions      []string       `yaml:"actions,omitempty"`
	Calls        []ExpectedCall `yaml:"calls,omitempty"`
	Blocked      []string       `yaml:"blocked,omitempty"`
	WarningLevel string         `yaml:"warning_level,omitempty"`
}

// Case is one evaluation within a scenario file. Builtin names a demo by
// 1-based index or title. Context is decoded over the demo (or default)
// context, so only the listed fields change; a non-empty Prompt replaces
// the demo prompt.
type Case struct {
	Builtin string    `yaml:"builtin,omitempty"`
	Context yaml.Node `yaml:"context,omitempty"`
	Prompt  string    `yaml:"prompt,omitempty"`
	Expect  Expect    `yaml:"expect"`
}

// Scenario is a named collection of pipeline test cases.
type Scenario struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one test case.
type CaseResult struct {
	Index        int      `json:"index"`
	Passed       bool     `json:"passed"`
	Prompt       string   `json:"prompt"`
	Event        string   `json:"event"`
	Selected     []string `json:"selected"`
	Blocked      []string `json:"blocked"`
	WarningLevel string   `json:"warning_level"`
	Failures     []string `json:"failures,omitempty"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
