package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/drivewatch/internal/model"
	"github.com/ppiankov/drivewatch/internal/rpc"
	"github.com/ppiankov/drivewatch/internal/scenario"
	"github.com/ppiankov/drivewatch/internal/session"
)

var (
	runScenario string
	runPrompt   string
	runFormat   string
	runEngineer bool
	runServer   string
	runContext  contextFlags
)

func init() {
	runCmd.Flags().StringVarP(&runScenario, "scenario", "s", "1", "Built-in scenario by 1-based index or title")
	runCmd.Flags().StringVarP(&runPrompt, "prompt", "p", "", "Driver prompt (default: the scenario's prompt)")
	runCmd.Flags().StringVar(&runFormat, "format", "text", "Output format: text or json")
	runCmd.Flags().BoolVar(&runEngineer, "engineer", false, "Show the raw action JSON handed to the safety gate")
	runCmd.Flags().StringVar(&runServer, "server", "", "Run against a drivewatch server at this address instead of in-process")
	runContext.register(runCmd)
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the arbitration pipeline once for a scenario",
	Long: `Loads a built-in scenario, optionally overrides context fields and the
prompt, then runs selection, the cooldown safety gate and the mock vehicle
once as a manual trigger.

Examples:
  drivewatch run --scenario 5
  drivewatch run --scenario "Compound risk" --format json
  drivewatch run --drowsy --drowsy-confidence 0.95 --prompt "I'm tired"
  drivewatch run --server localhost:7443 --scenario 2`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	if runFormat != "text" && runFormat != "json" {
		return fmt.Errorf("invalid --format %q (use text or json)", runFormat)
	}
	demo, ok := scenario.Find(scenario.Builtin(), runScenario)
	if !ok {
		return fmt.Errorf("unknown scenario %q (see: drivewatch scenario list)", runScenario)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		snap session.Snapshot
		err  error
	)
	if runServer != "" {
		snap, err = runRemote(ctx, cmd, demo)
	} else {
		snap, err = runLocal(ctx, cmd, demo)
	}
	if err != nil {
		return err
	}

	if runFormat == "json" {
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	fmt.Fprintf(os.Stderr, "scenario: %s\n", demo.Title)
	fmt.Print(formatSnapshot(snap, runEngineer))
	return nil
}

func runLocal(ctx context.Context, cmd *cobra.Command, demo scenario.Demo) (session.Snapshot, error) {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return session.Snapshot{}, err
	}
	sess, res, err := session.Build(ctx, cfg, logger)
	if err != nil {
		return session.Snapshot{}, err
	}
	defer func() { _ = res.Close() }()

	sess.SelectScenario(demo)
	if runContext.changed(cmd) {
		sess.UpdateContext(func(c model.Context) model.Context { return runContext.apply(cmd, c) })
	}
	if cmd.Flags().Changed("prompt") {
		sess.SetPrompt(runPrompt)
	}
	return sess.Run(ctx)
}

func runRemote(ctx context.Context, cmd *cobra.Command, demo scenario.Demo) (session.Snapshot, error) {
	client, err := rpc.Dial(runServer)
	if err != nil {
		return session.Snapshot{}, err
	}
	defer func() { _ = client.Close() }()

	req := rpc.RunRequest{Scenario: runScenario}
	if runContext.changed(cmd) {
		c := runContext.apply(cmd, demo.Context)
		req.Context = &c
	}
	if cmd.Flags().Changed("prompt") {
		req.Prompt = &runPrompt
	}
	return client.Run(ctx, req)
}
