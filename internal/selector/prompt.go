package selector

import (
	"encoding/json"
	"strings"

	"github.com/ppiankov/drivewatch/internal/model"
)

// NoActionExample is the literal the model is told to return when nothing
// needs to happen.
const NoActionExample = `[{"name":"log_safety_event","arguments":{"message":"no_action_selected"}}]`

// BuildPrompt renders the model prompt: the context as indented JSON, the
// user prompt, the array-only output instruction, the allowed tool names
// and the no-action example.
func BuildPrompt(c model.Context, userPrompt string) string {
	ctxJSON, err := json.MarshalIndent(c.Clamped(), "", "  ")
	if err != nil {
		// Context holds only finite numbers and bools after clamping.
		ctxJSON = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("You are a function selection model for a driver assistance system.\n\n")
	b.WriteString("Input context is structured sensor state (do not invent fields):\n")
	b.Write(ctxJSON)
	b.WriteString("\n\nUser prompt:\n")
	b.WriteString(strings.TrimSpace(userPrompt))
	b.WriteString("\n\nReturn ONLY a JSON array of tool calls. Each item must be:\n")
	b.WriteString(`{"name": "<tool_name>", "arguments": { ... }}`)
	b.WriteString("\n\nAllowed tool names:\n")
	for _, name := range model.Vocabulary {
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	b.WriteString("\nIf no action is needed, return:\n")
	b.WriteString(NoActionExample)
	b.WriteByte('\n')
	return b.String()
}
