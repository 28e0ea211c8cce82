package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
)

// Action vocabulary understood by the mock vehicle. Names outside this list
// are still accepted and passed through.
const (
	ActSteeringVibration      = "trigger_steering_vibration"
	ActNavigationNotification = "trigger_navigation_notification"
	ActNavigationWarning      = "navigation_warning"
	ActDrowsinessAlertSound   = "trigger_drowsiness_alert_sound"
	ActClusterVisualWarning   = "trigger_cluster_visual_warning"
	ActHUDWarning             = "trigger_hud_warning"
	ActVoicePrompt            = "trigger_voice_prompt"
	ActEscalateWarningLevel   = "escalate_warning_level"
	ActRestRecommendation     = "trigger_rest_recommendation"
	ActLogSafetyEvent         = "log_safety_event"
	ActRequestSafeMode        = "request_safe_mode"
)

// Vocabulary is the documented action list, in prompt order.
var Vocabulary = []string{
	ActSteeringVibration,
	ActNavigationNotification,
	ActDrowsinessAlertSound,
	ActClusterVisualWarning,
	ActHUDWarning,
	ActVoicePrompt,
	ActEscalateWarningLevel,
	ActRestRecommendation,
	ActLogSafetyEvent,
	ActRequestSafeMode,
}

// IsKnownAction reports whether name is in the documented vocabulary,
// including the navigation_warning alias.
func IsKnownAction(name string) bool {
	if name == ActNavigationWarning {
		return true
	}
	for _, v := range Vocabulary {
		if v == name {
			return true
		}
	}
	return false
}

// Action is one named vehicle command proposed by a selector.
type Action struct {
	Name      string    `json:"name"`
	Arguments Arguments `json:"arguments"`
}

// NewAction builds an action from alternating key/value pairs.
func NewAction(name string, kv ...any) Action {
	return Action{Name: name, Arguments: Args(kv...)}
}

// ActionSequence is an ordered list of actions. Order is execution order.
type ActionSequence []Action

// Names returns the action names in order.
func (s ActionSequence) Names() []string {
	names := make([]string, len(s))
	for i, a := range s {
		names[i] = a.Name
	}
	return names
}

// Arguments is a string-keyed map of JSON-like values that remembers
// insertion order. The zero value is an empty map ready to use.
type Arguments struct {
	keys   []string
	values map[string]any
}

// Args builds Arguments from alternating key/value pairs. Non-string keys
// are formatted with %v; a trailing key without a value maps to nil.
func Args(kv ...any) Arguments {
	var a Arguments
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		var val any
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		a.Set(key, val)
	}
	return a
}

// Set stores v under key. An existing key keeps its position.
//
// Arguments is copied by value with its Action, so copies share storage.
// Set always writes to fresh storage and never changes another copy.
func (a *Arguments) Set(key string, v any) {
	values := make(map[string]any, len(a.values)+1)
	for k, old := range a.values {
		values[k] = old
	}
	keys := a.keys
	if _, ok := values[key]; !ok {
		keys = append(slices.Clip(a.keys), key)
	}
	values[key] = v
	a.keys, a.values = keys, values
}

// Get returns the value stored under key.
func (a Arguments) Get(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

// String returns the value under key rendered as text. Strings are returned
// as-is; other present values are formatted with %v; nil counts as absent.
func (a Arguments) String(key string) (string, bool) {
	v, ok := a.values[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Len returns the number of keys.
func (a Arguments) Len() int { return len(a.keys) }

// Keys returns the keys in insertion order.
func (a Arguments) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Map returns an unordered copy.
func (a Arguments) Map() map[string]any {
	out := make(map[string]any, len(a.keys))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// Equal reports whether both hold the same keys in the same order with
// deeply equal values.
func (a Arguments) Equal(b Arguments) bool {
	if len(a.keys) != len(b.keys) {
		return false
	}
	for i, k := range a.keys {
		if b.keys[i] != k {
			return false
		}
		if !reflect.DeepEqual(a.values[k], b.values[k]) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the object with keys in insertion order.
func (a Arguments) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(a.values[k])
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping its key order. null decodes to
// an empty map; any other non-object is an error.
func (a *Arguments) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = Arguments{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("arguments: expected object, got %v", tok)
	}

	var out Arguments
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("arguments: expected key, got %v", kt)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("arguments: value for %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}
