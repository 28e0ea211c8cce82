package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/drivewatch/internal/config"
)

var (
	initDir   string
	initForce bool
)

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to write the config and example scenarios into")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap drivewatch configuration",
	Long: `Writes a commented default drivewatch.yaml and an example scenario file
under scenarios/. Existing files are kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

// exampleScenarioYAML passes against the stub selector with default settings.
const exampleScenarioYAML = `# Scenario files drive "drivewatch scenario check".
# Each case loads a built-in demo (by index or title), optionally overrides
# context fields and the prompt, and lists what the pipeline must produce.
name: example
cases:
  - builtin: "2"
    expect:
      event: LANE_DEPARTURE_HIGH_SPEED
      actions: [trigger_steering_vibration, trigger_hud_warning, log_safety_event]
      blocked: []
      warning_level: normal

  - builtin: Compound risk (lane + drowsy + collision)
    expect:
      event: DROWSY_NO_HANDS
      blocked: [trigger_cluster_visual_warning, trigger_hud_warning, escalate_warning_level]
      warning_level: critical

  - context:
      speed_kph: 60
    prompt: "How is everything?"
    expect:
      event: NONE
      calls:
        - name: log_safety_event
          arguments: {message: no_action_selected}
`

func runInit(cmd *cobra.Command, args []string) error {
	content := config.DefaultConfigYAML()
	if err := config.ValidateYAML([]byte(content)); err != nil {
		return fmt.Errorf("default config template: %w", err)
	}

	var created []string

	configFile := filepath.Join(initDir, config.DefaultPath)
	if wrote, err := writeIfMissing(configFile, content); err != nil {
		return err
	} else if wrote {
		created = append(created, configFile)
	}

	scenarioFile := filepath.Join(initDir, "scenarios", "example.yaml")
	if wrote, err := writeIfMissing(scenarioFile, exampleScenarioYAML); err != nil {
		return err
	} else if wrote {
		created = append(created, scenarioFile)
	}

	fmt.Println("drivewatch init complete.")
	fmt.Println()
	if len(created) > 0 {
		fmt.Println("Created:")
		for _, path := range created {
			fmt.Printf("  %s\n", path)
		}
		fmt.Println()
	} else {
		fmt.Println("All files already exist (use --force to overwrite).")
		fmt.Println()
	}

	fmt.Println("Check the example scenarios:")
	fmt.Printf("  drivewatch scenario check %s\n", scenarioFile)
	fmt.Println()
	fmt.Println("Try a demo:")
	fmt.Println("  drivewatch run --scenario 11")
	return nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
