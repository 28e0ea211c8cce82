package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// ReplayFilter selects entries. Zero fields do not filter.
type ReplayFilter struct {
	RunID string
	From  time.Time
	To    time.Time
}

// ReplaySummary counts decisions across the selected entries.
type ReplaySummary struct {
	Total          int            `json:"total"`
	Runs           int            `json:"runs"`
	ExecutedCount  int            `json:"executed_count"`
	BlockedCount   int            `json:"blocked_count"`
	ByEvent        map[string]int `json:"by_event"`
	FirstTimestamp string         `json:"first_timestamp"`
	LastTimestamp  string         `json:"last_timestamp"`
}

// ReplayResult holds the selected entries and their summary.
type ReplayResult struct {
	RunID   string        `json:"run_id,omitempty"`
	Entries []AuditEntry  `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns entries matching the filter.
// Malformed lines are skipped; use Verify to detect them.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	result := &ReplayResult{
		RunID:   filter.RunID,
		Summary: ReplaySummary{ByEvent: map[string]int{}},
	}
	runs := map[string]bool{}

	scanner := newScanner(f)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if filter.RunID != "" && entry.RunID != filter.RunID {
			continue
		}
		if !filter.From.IsZero() || !filter.To.IsZero() {
			ts, err := time.Parse(TimestampFormat, entry.Timestamp)
			if err != nil {
				continue
			}
			if !filter.From.IsZero() && ts.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && ts.After(filter.To) {
				continue
			}
		}

		result.Entries = append(result.Entries, entry)
		runs[entry.RunID] = true
		updateSummary(&result.Summary, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: read log: %w", err)
	}

	result.Summary.Runs = len(runs)
	return result, nil
}

func updateSummary(s *ReplaySummary, entry AuditEntry) {
	s.Total++
	switch entry.Decision {
	case DecisionExecuted:
		s.ExecutedCount++
	case DecisionBlocked:
		s.BlockedCount++
	}
	s.ByEvent[entry.Event]++

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}
