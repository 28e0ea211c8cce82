package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable timeline.
func FormatTimeline(result *ReplayResult) string {
	label := result.RunID
	if label == "" {
		label = "all runs"
	}
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Run: %s | No entries found.\n", label)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Run: %s | %s–%s UTC\n", label,
		formatDateRange(result.Summary.FirstTimestamp),
		formatTimeOnly(result.Summary.LastTimestamp)))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		b.WriteString(fmt.Sprintf("%-10s %-9s %-26s %-32s %s\n",
			formatTimeOnly(e.Timestamp),
			strings.ToUpper(e.Decision),
			truncate(e.Event, 26),
			truncate(e.Action.Name, 32),
			e.Reason))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))
	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("audit: marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	events := make([]string, 0, len(s.ByEvent))
	for ev, n := range s.ByEvent {
		events = append(events, fmt.Sprintf("%s=%d", ev, n))
	}
	sort.Strings(events)
	return fmt.Sprintf("Summary: %d executed, %d blocked across %d run(s) | %s\n",
		s.ExecutedCount, s.BlockedCount, s.Runs, strings.Join(events, " "))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
