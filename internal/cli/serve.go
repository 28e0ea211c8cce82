package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/drivewatch/internal/config"
	"github.com/ppiankov/drivewatch/internal/rpc"
	"github.com/ppiankov/drivewatch/internal/session"
)

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "gRPC listen address (default: server.grpc_addr from config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC arbitration server",
	Long: "Runs one drivewatch session behind a gRPC server. Clients parse model\n" +
		"output, evaluate the gate, filter and apply actions, and run scenarios.\n" +
		"Gate thresholds and the cooldown policy hot-reload from the config file.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.GRPCAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, res, err := session.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build session: %w", err)
	}
	defer func() { _ = res.Close() }()

	srv := rpc.New(sess, logger.Named("rpc"))

	watchPath := configPath
	if watchPath == "" {
		watchPath = config.DefaultPath
	}
	watcher, err := config.NewWatcher(watchPath, srv.Reconfigure, logger.Named("config"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(addr)
	})
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(ctx)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down drivewatch server...")
		srv.GracefulStop()
		return nil
	})

	fmt.Fprintf(os.Stderr, "drivewatch server listening on %s\n", addr)
	fmt.Fprintf(os.Stderr, "Model backend: %s\n", cfg.Model.Backend)
	if watcher != nil {
		fmt.Fprintf(os.Stderr, "Config: %s (hot-reload enabled)\n", watchPath)
	}
	fmt.Fprintln(os.Stderr)

	return g.Wait()
}
