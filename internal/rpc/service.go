// Package rpc exposes a session over gRPC as drivewatch.v1.Arbiter. There
// is no generated code: every request and response is a
// google.protobuf.Struct carried by the default proto codec.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "drivewatch.v1.Arbiter"

// Method names.
const (
	MethodParse          = "Parse"
	MethodEvaluateGate   = "EvaluateGate"
	MethodFilter         = "Filter"
	MethodApply          = "Apply"
	MethodRun            = "Run"
	MethodSelectScenario = "SelectScenario"
	MethodReset          = "Reset"
)

// ArbiterServer is the server side of drivewatch.v1.Arbiter.
type ArbiterServer interface {
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateGate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Filter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Apply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Run(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SelectScenario(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(ArbiterServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, fn unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(ArbiterServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(srv.(ArbiterServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes drivewatch.v1.Arbiter for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ArbiterServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(MethodParse, ArbiterServer.Parse),
		methodDesc(MethodEvaluateGate, ArbiterServer.EvaluateGate),
		methodDesc(MethodFilter, ArbiterServer.Filter),
		methodDesc(MethodApply, ArbiterServer.Apply),
		methodDesc(MethodRun, ArbiterServer.Run),
		methodDesc(MethodSelectScenario, ArbiterServer.SelectScenario),
		methodDesc(MethodReset, ArbiterServer.Reset),
	},
	Metadata: "drivewatch/v1/arbiter.proto",
}

// FullMethod returns the wire path for a method name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// ToStruct converts any JSON-encodable value into a Struct. The value must
// encode as a JSON object.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpc: encode: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("rpc: to struct: %w", err)
	}
	return out, nil
}

// FromStruct decodes a Struct into v through its JSON form.
func FromStruct(in *structpb.Struct, v any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("rpc: from struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpc: decode: %w", err)
	}
	return nil
}
