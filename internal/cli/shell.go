package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ppiankov/drivewatch/internal/model"
	"github.com/ppiankov/drivewatch/internal/scenario"
	"github.com/ppiankov/drivewatch/internal/session"
)

var shellEngineer bool

func init() {
	shellCmd.Flags().BoolVar(&shellEngineer, "engineer", false, "Start with engineer output enabled")
	rootCmd.AddCommand(shellCmd)
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive demo session",
	Long: `Starts an interactive session on the first built-in scenario. Commands are
read one per line from stdin, so a script can be piped in.

Type "help" for the command list.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

const shellHelp = `Commands:
  scenarios                 list built-in scenarios
  scenario <n|title>        load a scenario (clears cooldowns)
  set <field> <value>       fields: lane, lane-confidence, drowsy, drowsy-confidence,
                            hands, speed, collision, minutes
  prompt <text>             set the driver prompt
  auto on|off               run automatically when tick sees a trigger
  tick                      evaluate the gate (and run if auto)
  run                       run the pipeline now (MANUAL_TRIGGER)
  state                     show context, gate and vehicle
  cooldowns                 show tracked cooldowns
  log                       show the session log
  engineer on|off           toggle raw JSON output
  reset                     vehicle back to NORMAL, cooldowns and log cleared
  exit                      leave the shell
`

func runShell(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, res, err := session.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = res.Close() }()

	sh := &shell{sess: sess, out: os.Stdout, engineer: shellEngineer}
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Fprintf(os.Stderr, "drivewatch %s (scenario: %s). Type \"help\" for commands.\n", version, sess.Title())
	}
	return sh.loop(ctx, os.Stdin, interactive)
}

type shell struct {
	sess     *session.Session
	out      io.Writer
	engineer bool
}

var errQuit = errors.New("quit")

func (sh *shell) loop(ctx context.Context, in io.Reader, interactive bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(os.Stderr, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		err = sh.exec(ctx, args)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (sh *shell) exec(ctx context.Context, args []string) error {
	switch args[0] {
	case "help", "?":
		fmt.Fprint(sh.out, shellHelp)
	case "exit", "quit":
		return errQuit
	case "scenarios":
		fmt.Fprint(sh.out, scenario.FormatCatalog(scenario.Builtin()))
	case "scenario":
		if len(args) < 2 {
			return errors.New("usage: scenario <n|title>")
		}
		key := strings.Join(args[1:], " ")
		demo, ok := scenario.Find(scenario.Builtin(), key)
		if !ok {
			return fmt.Errorf("unknown scenario %q", key)
		}
		sh.sess.SelectScenario(demo)
		fmt.Fprintf(sh.out, "scenario: %s\ngate: %s\n", demo.Title, formatGate(sh.sess.LastGate()))
	case "set":
		if len(args) != 3 {
			return errors.New("usage: set <field> <value>")
		}
		update, err := contextSetter(args[1], args[2])
		if err != nil {
			return err
		}
		sh.sess.UpdateContext(update)
		fmt.Fprintf(sh.out, "context: %s\ngate: %s\n", formatContext(sh.sess.Context()), formatGate(sh.sess.LastGate()))
	case "prompt":
		sh.sess.SetPrompt(strings.Join(args[1:], " "))
		fmt.Fprintf(sh.out, "prompt: %q\n", sh.sess.Prompt())
	case "auto":
		on, err := parseSwitch(args)
		if err != nil {
			return err
		}
		sh.sess.SetAutoMode(on)
		fmt.Fprintf(sh.out, "auto: %s\n", onOff(on))
	case "engineer":
		on, err := parseSwitch(args)
		if err != nil {
			return err
		}
		sh.engineer = on
		fmt.Fprintf(sh.out, "engineer: %s\n", onOff(on))
	case "tick":
		g, snap, err := sh.sess.Tick(ctx)
		fmt.Fprintf(sh.out, "gate: %s\n", formatGate(g))
		if snap != nil {
			fmt.Fprint(sh.out, formatSnapshot(*snap, sh.engineer))
		}
		return err
	case "run":
		snap, err := sh.sess.Run(ctx)
		fmt.Fprint(sh.out, formatSnapshot(snap, sh.engineer))
		return err
	case "state":
		v := sh.sess.Vehicle()
		fmt.Fprintf(sh.out, "scenario: %s\n", sh.sess.Title())
		fmt.Fprintf(sh.out, "context:  %s\n", formatContext(sh.sess.Context()))
		fmt.Fprintf(sh.out, "prompt:   %q\n", sh.sess.Prompt())
		fmt.Fprintf(sh.out, "gate:     %s\n", formatGate(sh.sess.LastGate()))
		fmt.Fprintf(sh.out, "auto:     %s\n", onOff(sh.sess.AutoMode()))
		fmt.Fprintf(sh.out, "warning:  %s\n", v.WarningLevel)
		fmt.Fprintf(sh.out, "last:     %s\n", formatNames(v.LastActions))
	case "cooldowns":
		entries := sh.sess.Cooldowns()
		if len(entries) == 0 {
			fmt.Fprintln(sh.out, "no cooldowns")
		}
		for _, e := range entries {
			fmt.Fprintf(sh.out, "%-32s %s\n", e.Name, e.Accepted.Format(time.TimeOnly))
		}
	case "log":
		for _, line := range sh.sess.Log() {
			fmt.Fprintln(sh.out, line)
		}
	case "reset":
		sh.sess.Reset()
		fmt.Fprintln(sh.out, "reset: vehicle NORMAL, cooldowns cleared")
	default:
		return fmt.Errorf("unknown command %q (try help)", args[0])
	}
	return nil
}

// contextSetter parses one "set" assignment into a context update.
func contextSetter(field, value string) (func(model.Context) model.Context, error) {
	switch field {
	case "lane", "drowsy", "hands":
		b, err := parseBool(value)
		if err != nil {
			return nil, err
		}
		return func(c model.Context) model.Context {
			switch field {
			case "lane":
				return c.WithLaneDeparture(b)
			case "drowsy":
				return c.WithDrowsy(b)
			default:
				return c.WithHandsOn(b)
			}
		}, nil
	case "lane-confidence", "drowsy-confidence", "collision":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		return func(c model.Context) model.Context {
			switch field {
			case "lane-confidence":
				return c.WithLaneConfidence(f)
			case "drowsy-confidence":
				return c.WithDrowsinessConfidence(f)
			default:
				return c.WithForwardCollisionRisk(f)
			}
		}, nil
	case "speed", "minutes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		return func(c model.Context) model.Context {
			if field == "speed" {
				return c.WithSpeedKph(n)
			}
			return c.WithDrivingDurationMinutes(n)
		}, nil
	default:
		return nil, fmt.Errorf("unknown field %q", field)
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func parseSwitch(args []string) (bool, error) {
	if len(args) != 2 {
		return false, fmt.Errorf("usage: %s on|off", args[0])
	}
	return parseBool(args[1])
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
