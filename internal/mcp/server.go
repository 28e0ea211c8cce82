// Package mcp serves the drivewatch pipeline as MCP tools over stdio.
package mcp

import (
	"context"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/drivewatch/internal/session"
)

// Server wraps the MCP SDK server around one session.
type Server struct {
	mcpServer *mcpsdk.Server
	session   *session.Session
	logger    *zap.Logger
	mu        sync.Mutex
}

// New creates an MCP server whose tools share sess.
func New(sess *session.Session, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if version == "" {
		version = "dev"
	}
	s := &Server{
		session: sess,
		logger:  logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "drivewatch",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Connect serves one session on t, e.g. an in-memory transport.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

// registerTools adds all drivewatch tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "drivewatch_parse",
		Description: "Extract vehicle actions from raw model output (JSON array, JSON object or tagged function calls).",
	}, s.handleParse)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "drivewatch_gate",
		Description: "Evaluate the scenario gate for a driving context, or for the session context when omitted.",
	}, s.handleGate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "drivewatch_filter",
		Description: "Pass actions through the session cooldown gate. Repeated action names inside the cooldown window are blocked.",
	}, s.handleFilter)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "drivewatch_run",
		Description: "Run the full pipeline once: select actions, filter them and apply the executed ones to the vehicle.",
	}, s.handleRun)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "drivewatch_scenarios",
		Description: "List the built-in driving scenarios.",
	}, s.handleScenarios)
}
