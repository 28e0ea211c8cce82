package rpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/drivewatch/internal/config"
	"github.com/ppiankov/drivewatch/internal/intercept"
	"github.com/ppiankov/drivewatch/internal/model"
	"github.com/ppiankov/drivewatch/internal/scenario"
	"github.com/ppiankov/drivewatch/internal/selector"
	"github.com/ppiankov/drivewatch/internal/session"
)

// Server implements drivewatch.v1.Arbiter over one session. Every call
// holds the session mutex, so cooldowns and vehicle state see a single
// serialized history.
type Server struct {
	mu      sync.Mutex
	session *session.Session
	logger  *zap.Logger

	grpcServer *grpc.Server
}

// New registers the Arbiter service for sess.
func New(sess *session.Session, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		session: sess,
		logger:  logger,
	}
	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(s.logUnary))
	s.grpcServer.RegisterService(&ServiceDesc, s)
	return s
}

// Serve listens on addr and blocks until stopped.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc: listen on %s: %w", addr, err)
	}
	s.logger.Info("rpc.serve", zap.String("addr", lis.Addr().String()))
	return s.ServeOn(lis)
}

// ServeOn serves on an existing listener.
func (s *Server) ServeOn(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// GracefulStop drains in-flight calls and stops the server.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// Reconfigure applies reloaded settings to the session. Safe to call from
// the config watcher while serving.
func (s *Server) Reconfigure(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Reconfigure(cfg)
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	fields := []zap.Field{
		zap.String("method", info.FullMethod),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		s.logger.Warn("rpc.call", append(fields, zap.Error(err))...)
	} else {
		s.logger.Debug("rpc.call", fields...)
	}
	return resp, err
}

func decode(in *structpb.Struct, v any) error {
	if err := FromStruct(in, v); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Parse implements the Parse RPC. It does not touch the session.
func (s *Server) Parse(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ParseRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	actions, strategy, err := intercept.ParseWithStrategy(req.Text)
	resp := ParseResponse{Actions: actions, Strategy: strategy.String()}
	if resp.Actions == nil {
		resp.Actions = model.ActionSequence{}
	}
	if err != nil {
		resp.Error = string(selector.Classify(err))
	}
	return encode(resp)
}

// EvaluateGate implements the EvaluateGate RPC.
func (s *Server) EvaluateGate(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req GateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	s.mu.Lock()
	c := s.session.Context()
	if req.Context != nil {
		c = req.Context.Clamped()
	}
	res := s.session.Evaluate(c)
	s.mu.Unlock()
	return encode(res)
}

// Filter implements the Filter RPC against the session cooldown store.
func (s *Server) Filter(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ActionsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	s.mu.Lock()
	res := s.session.Filter(req.Actions)
	s.mu.Unlock()
	return encode(res)
}

// Apply implements the Apply RPC.
func (s *Server) Apply(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ActionsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	s.mu.Lock()
	st := s.session.Apply(req.Actions)
	s.mu.Unlock()
	return encode(st)
}

// Run implements the Run RPC: one manual pipeline pass.
func (s *Server) Run(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req RunRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Scenario != "" {
		d, ok := scenario.Find(scenario.Builtin(), req.Scenario)
		if !ok {
			return nil, status.Errorf(codes.NotFound, "unknown scenario %q", req.Scenario)
		}
		s.session.SelectScenario(d)
	}
	if req.Context != nil {
		replacement := req.Context.Clamped()
		s.session.UpdateContext(func(model.Context) model.Context { return replacement })
	}
	if req.Prompt != nil {
		s.session.SetPrompt(*req.Prompt)
	}

	snap, err := s.session.Run(ctx)
	if err != nil {
		s.logger.Warn("rpc.run: persistence failed", zap.String("run_id", snap.RunID), zap.Error(err))
	}
	return encode(snap)
}

// SelectScenario implements the SelectScenario RPC.
func (s *Server) SelectScenario(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ScenarioRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	d, ok := scenario.Find(scenario.Builtin(), req.Scenario)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown scenario %q", req.Scenario)
	}

	s.mu.Lock()
	s.session.SelectScenario(d)
	resp := ScenarioResponse{
		Title:   s.session.Title(),
		Prompt:  s.session.Prompt(),
		Context: s.session.Context(),
		Gate:    s.session.LastGate(),
	}
	s.mu.Unlock()
	return encode(resp)
}

// Reset implements the Reset RPC.
func (s *Server) Reset(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	s.mu.Lock()
	s.session.Reset()
	s.mu.Unlock()
	return encode(ResetResponse{Status: "reset"})
}

// IsNotFound reports whether err is a NotFound status.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
