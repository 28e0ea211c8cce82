package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/drivewatch/internal/journal"
)

var (
	historyLimit  int
	historyFormat string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyRecentCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.PersistentFlags().StringVar(&historyFormat, "format", "text", "Output format: text or json")
	historyRecentCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the run journal",
	Long:  "Queries the SQLite run journal configured at journal.path.",
}

var historyRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryRecent,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the journal",
	Args:  cobra.NoArgs,
	RunE:  runHistoryStats,
}

func openJournal() (*journal.Store, error) {
	cfg, _, err := loadRuntime()
	if err != nil {
		return nil, err
	}
	if cfg.Journal.Path == "" {
		return nil, errors.New("journal.path is not configured")
	}
	return journal.Open(cfg.Journal.Path)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runHistoryRecent(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	if historyFormat == "json" {
		return printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  %-26s %-8s executed=%d blocked=%d\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Event, r.WarningLevel,
			len(r.Executed), len(r.Blocked))
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := store.Get(context.Background(), args[0])
	if errors.Is(err, journal.ErrNotFound) {
		return fmt.Errorf("run %s not found", args[0])
	}
	if err != nil {
		return err
	}
	if historyFormat == "json" {
		return printJSON(r)
	}
	fmt.Printf("Run %s  %s\n", r.ID, r.CreatedAt.Local().Format(time.DateTime))
	fmt.Printf("  event:    %s\n", r.Event)
	fmt.Printf("  gate:     %s\n", formatGate(r.Gate))
	fmt.Printf("  context:  %s\n", formatContext(r.Context))
	fmt.Printf("  prompt:   %q\n", r.Prompt)
	fmt.Printf("  selected: %s\n", formatNames(r.Selected))
	fmt.Printf("  executed: %s\n", formatNames(r.Executed))
	fmt.Printf("  blocked:  %s\n", formatNames(r.Blocked))
	for _, line := range r.SafetyLogs {
		fmt.Printf("    %s\n", line)
	}
	fmt.Printf("  warning:  %s\n", r.WarningLevel)
	return nil
}

func runHistoryStats(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return err
	}
	if historyFormat == "json" {
		return printJSON(stats)
	}
	fmt.Printf("runs:     %d\n", stats.Runs)
	fmt.Printf("executed: %d\n", stats.Executed)
	fmt.Printf("blocked:  %d\n", stats.Blocked)
	events := make([]string, 0, len(stats.ByEvent))
	for e := range stats.ByEvent {
		events = append(events, e)
	}
	sort.Strings(events)
	for _, e := range events {
		fmt.Printf("  %-28s %d\n", e, stats.ByEvent[e])
	}
	return nil
}
