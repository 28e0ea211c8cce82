package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/drivewatch/internal/model"
	"github.com/ppiankov/drivewatch/internal/session"
)

// DefaultCallTimeout bounds each client call when ctx has no deadline.
const DefaultCallTimeout = 5 * time.Second

// Client talks to a drivewatch Arbiter server.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for addr. Extra options are appended after the
// insecure transport credentials.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("rpc: connect to %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call invokes method with req encoded as a Struct and decodes the reply
// into resp.
func (c *Client) Call(ctx context.Context, method string, req, resp any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCallTimeout)
		defer cancel()
	}

	in, err := ToStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return FromStruct(out, resp)
}

// Parse extracts actions from raw model text on the server.
func (c *Client) Parse(ctx context.Context, text string) (ParseResponse, error) {
	var resp ParseResponse
	err := c.Call(ctx, MethodParse, ParseRequest{Text: text}, &resp)
	return resp, err
}

// EvaluateGate evaluates cx, or the server session context when nil.
func (c *Client) EvaluateGate(ctx context.Context, cx *model.Context) (model.GateResult, error) {
	var resp model.GateResult
	err := c.Call(ctx, MethodEvaluateGate, GateRequest{Context: cx}, &resp)
	return resp, err
}

// Filter runs actions through the server's cooldown gate.
func (c *Client) Filter(ctx context.Context, actions model.ActionSequence) (model.SafetyResult, error) {
	var resp model.SafetyResult
	err := c.Call(ctx, MethodFilter, ActionsRequest{Actions: actions}, &resp)
	return resp, err
}

// Apply folds actions into the server's vehicle state.
func (c *Client) Apply(ctx context.Context, actions model.ActionSequence) (model.VehicleState, error) {
	var resp model.VehicleState
	err := c.Call(ctx, MethodApply, ActionsRequest{Actions: actions}, &resp)
	return resp, err
}

// Run triggers one pipeline pass on the server.
func (c *Client) Run(ctx context.Context, req RunRequest) (session.Snapshot, error) {
	var resp session.Snapshot
	err := c.Call(ctx, MethodRun, req, &resp)
	return resp, err
}

// SelectScenario switches the server session to a built-in demo.
func (c *Client) SelectScenario(ctx context.Context, key string) (ScenarioResponse, error) {
	var resp ScenarioResponse
	err := c.Call(ctx, MethodSelectScenario, ScenarioRequest{Scenario: key}, &resp)
	return resp, err
}

// Reset clears the server session's vehicle state and cooldowns.
func (c *Client) Reset(ctx context.Context) error {
	return c.Call(ctx, MethodReset, struct{}{}, nil)
}
