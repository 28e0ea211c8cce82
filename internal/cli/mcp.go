package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	drivemcp "github.com/ppiankov/drivewatch/internal/mcp"
	"github.com/ppiankov/drivewatch/internal/session"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs drivewatch as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes tools: drivewatch_parse, drivewatch_gate, drivewatch_filter,\n" +
		"drivewatch_run, drivewatch_scenarios.",
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, res, err := session.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer func() { _ = res.Close() }()

	srv := drivemcp.New(sess, version, logger.Named("mcp"))

	fmt.Fprintln(os.Stderr, "drivewatch MCP server running on stdio")
	fmt.Fprintf(os.Stderr, "Model backend: %s\n", cfg.Model.Backend)
	fmt.Fprintln(os.Stderr)

	err = srv.Run(ctx)
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		return nil
	}
	return err
}
