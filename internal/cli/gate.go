package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/drivewatch/internal/gate"
	"github.com/ppiankov/drivewatch/internal/model"
	"github.com/ppiankov/drivewatch/internal/scenario"
)

var (
	gateScenario string
	gateFormat   string
	gateContext  contextFlags
)

func init() {
	gateCmd.Flags().StringVarP(&gateScenario, "scenario", "s", "", "Start from a built-in scenario's context (default: baseline context)")
	gateCmd.Flags().StringVar(&gateFormat, "format", "text", "Output format: text or json")
	gateContext.register(gateCmd)
	rootCmd.AddCommand(gateCmd)
}

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Evaluate the scenario gate for a driving context",
	Long: `Evaluates the scenario gate's priority rules against a context built from
the baseline (or a built-in scenario) plus any context flags, using the
thresholds from the loaded config.

Examples:
  drivewatch gate --drowsy --drowsy-confidence 0.92
  drivewatch gate --scenario 3 --format json`,
	RunE: runGate,
}

func runGate(cmd *cobra.Command, args []string) error {
	if gateFormat != "text" && gateFormat != "json" {
		return fmt.Errorf("invalid --format %q (use text or json)", gateFormat)
	}
	cfg, _, err := loadRuntime()
	if err != nil {
		return err
	}

	c := model.DefaultContext()
	if gateScenario != "" {
		demo, ok := scenario.Find(scenario.Builtin(), gateScenario)
		if !ok {
			return fmt.Errorf("unknown scenario %q", gateScenario)
		}
		c = demo.Context
	}
	c = gateContext.apply(cmd, c)

	result := gate.New(cfg.Gate).Evaluate(c)
	if gateFormat == "json" {
		out, err := json.MarshalIndent(struct {
			Context model.Context    `json:"context"`
			Gate    model.GateResult `json:"gate"`
		}{c, result}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	fmt.Printf("context: %s\n", formatContext(c))
	fmt.Printf("event:   %s\n", result.Event)
	fmt.Printf("reason:  %s\n", result.Reason)
	return nil
}
