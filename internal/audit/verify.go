package audit

import (
	"encoding/json"
	"fmt"
	"os"
)

// VerifyResult is the outcome of walking an audit log. On failure Error
// describes the first bad line and ErrorLine is its 1-based number.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Runs      int    `json:"runs"`
	Blocked   int    `json:"blocked"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify walks the log once and checks, per line:
//
//   - prev_hash is the genesis hash on line 1 and the hash of the
//     previous line after that
//   - the entry passes Check (known decision, cooldown reason on
//     blocked entries)
//   - seq is greater than the last seq seen for the same run_id
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer func() { _ = f.Close() }()

	res := VerifyResult{}
	lastSeq := map[string]int{}
	prevHash := GenesisHash

	fail := func(format string, args ...any) VerifyResult {
		res.Error = fmt.Sprintf(format, args...)
		res.ErrorLine = res.Lines
		return res
	}

	scanner := newScanner(f)
	for scanner.Scan() {
		res.Lines++
		line := scanner.Bytes()

		var entry AuditEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fail("parse error: %v", err)
		}
		if entry.PrevHash != prevHash {
			return fail("hash mismatch: expected %s, got %s", prevHash, entry.PrevHash)
		}
		if err := entry.Check(); err != nil {
			return fail("%v", err)
		}
		if last, seen := lastSeq[entry.RunID]; seen && entry.Seq <= last {
			return fail("run %s: seq %d does not follow seq %d", entry.RunID, entry.Seq, last)
		}

		lastSeq[entry.RunID] = entry.Seq
		if entry.Decision == DecisionBlocked {
			res.Blocked++
		}
		prevHash = HashLine(line)
	}
	if err := scanner.Err(); err != nil {
		return fail("scan: %v", err)
	}

	res.Valid = true
	res.Runs = len(lastSeq)
	return res
}
