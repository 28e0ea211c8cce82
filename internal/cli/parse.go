package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/drivewatch/internal/intercept"
	"github.com/ppiankov/drivewatch/internal/selector"
)

func init() {
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Extract tool-call actions from raw model output",
	Long: `Reads raw model output from a file (or stdin when omitted or "-") and
prints the extracted actions as a JSON array. The winning extraction
strategy is reported on stderr.

Exits 1 when no action could be extracted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	actions, strategy, err := intercept.ParseWithStrategy(string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse failed (%s): %v\n", selector.Classify(err), err)
		os.Exit(1)
	}

	out, err := intercept.EncodeArrayIndent(actions)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "strategy: %s (%d actions)\n", strategy, len(actions))
	fmt.Println(string(out))
	return nil
}
