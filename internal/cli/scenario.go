package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/drivewatch/internal/scenario"
	"github.com/ppiankov/drivewatch/internal/selector"
	"github.com/ppiankov/drivewatch/internal/session"
)

var (
	scenarioCheckFormat string
	scenarioCheckModel  bool
)

func init() {
	scenarioCheckCmd.Flags().StringVar(&scenarioCheckFormat, "format", "text", "Output format: text or json")
	scenarioCheckCmd.Flags().BoolVar(&scenarioCheckModel, "model", false, "Select with the configured model backend instead of the stub")
	scenarioCmd.AddCommand(scenarioListCmd)
	scenarioCmd.AddCommand(scenarioCheckCmd)
	rootCmd.AddCommand(scenarioCmd)
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Built-in demo scenarios and scenario file checks",
}

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in demo scenarios",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(scenario.FormatCatalog(scenario.Builtin()))
	},
}

var scenarioCheckCmd = &cobra.Command{
	Use:   "check <file.yaml> [file2.yaml ...]",
	Short: "Run scenario files against the arbitration pipeline",
	Long: `Runs each case in the given scenario files through the gate, the
selector, the cooldown safety gate and the mock vehicle, and checks the
expected event, actions, blocked actions and warning level.

Exits 1 if any case fails. Suitable for CI.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScenarioCheck,
}

func runScenarioCheck(cmd *cobra.Command, args []string) error {
	if scenarioCheckFormat != "text" && scenarioCheckFormat != "json" {
		return fmt.Errorf("invalid --format %q (use text or json)", scenarioCheckFormat)
	}
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := scenario.Options{
		Thresholds: cfg.Gate,
		Safety:     cfg.Safety,
		MaxEvents:  cfg.Vehicle.MaxEvents,
	}
	if scenarioCheckModel {
		sel, err := session.NewSelector(ctx, cfg.Model, logger.Named("selector"))
		if err != nil {
			return err
		}
		opts.NewSelector = func() selector.Selector { return sel }
	}

	var results []*scenario.RunResult
	for _, path := range args {
		result, err := scenario.LoadAndRun(ctx, path, opts)
		if err != nil {
			return err
		}
		results = append(results, result)
	}

	switch scenarioCheckFormat {
	case "json":
		out, err := scenario.FormatJSON(results)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(scenario.FormatText(results))
	}

	for _, r := range results {
		if r.Failed > 0 {
			os.Exit(1)
		}
	}
	return nil
}
