package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/drivewatch/internal/model"
)

// Safety gate decisions recorded per action.
const (
	DecisionExecuted = "executed"
	DecisionBlocked  = "blocked"
)

// BlockedReasonPrefix starts the reason of every blocked entry. The full
// reason is the cooldown gate's log line for that action.
const BlockedReasonPrefix = "SafetyGate: blocked "

// AuditEntry is one line in the hash-chained JSONL audit log. Arguments
// keep their insertion order, so json.Marshal output is deterministic and
// hashes are reproducible.
type AuditEntry struct {
	Timestamp  string       `json:"ts"`
	RunID      string       `json:"run_id"`
	Event      string       `json:"event"`
	Seq        int          `json:"seq"`
	Action     model.Action `json:"action"`
	Decision   string       `json:"decision"`
	Reason     string       `json:"reason"`
	ConfigHash string       `json:"config_hash"`
	PrevHash   string       `json:"prev_hash"`
}

// HashConfig fingerprints any JSON-encodable configuration so entries
// show which thresholds and cooldown settings were in force.
func HashConfig(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return HashLine(data)
}

// Check reports the first field that makes e unusable as a decision
// record. It does not look at the hash chain.
func (e AuditEntry) Check() error {
	switch {
	case e.RunID == "":
		return errors.New("missing run_id")
	case e.Action.Name == "":
		return errors.New("missing action name")
	case e.Seq < 0:
		return fmt.Errorf("negative seq %d", e.Seq)
	}
	switch e.Decision {
	case DecisionExecuted:
		return nil
	case DecisionBlocked:
		if !strings.HasPrefix(e.Reason, BlockedReasonPrefix+e.Action.Name+" (cooldown ") {
			return fmt.Errorf("blocked %s without a cooldown reason: %q", e.Action.Name, e.Reason)
		}
		return nil
	default:
		return fmt.Errorf("unknown decision %q", e.Decision)
	}
}
