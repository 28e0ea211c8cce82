package intercept

import (
	"encoding/json"

	"github.com/ppiankov/drivewatch/internal/model"
)

// EncodeArray renders actions in the JSON array wire form accepted by
// ParseBracketArray. A nil sequence encodes as [].
func EncodeArray(actions model.ActionSequence) ([]byte, error) {
	if actions == nil {
		actions = model.ActionSequence{}
	}
	return json.Marshal(actions)
}

// EncodeArrayIndent is EncodeArray with two-space indentation, used for
// the engineer view.
func EncodeArrayIndent(actions model.ActionSequence) ([]byte, error) {
	if actions == nil {
		actions = model.ActionSequence{}
	}
	return json.MarshalIndent(actions, "", "  ")
}
