// Package rpc holds the shared plumbing for the hand-written service
// descriptors under api/. Every method takes and returns a
// google.protobuf.Struct, so the default proto codec carries them.
package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// FullMethod returns "/service/method".
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// UnaryMethod builds the grpc.MethodDesc for method on service, dispatching to
// call, a method expression on the service interface (e.g. OTPServiceServer.RequestChallenge).
func UnaryMethod[S any](service, method string, call func(srv S, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := FullMethod(service, method)
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Invoke performs a unary call on cc.
func Invoke(ctx context.Context, cc grpc.ClientConnInterface, fullMethod string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Unimplemented returns the status for a method the server does not provide.
func Unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

// Message builds a Struct from fields. Values must be JSON-like (string, bool,
// numbers, nil, []any, map[string]any).
func Message(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("rpc: build message: %w", err)
	}
	return s, nil
}

// MustMessage is Message for literals known to be valid; it panics otherwise.
func MustMessage(fields map[string]any) *structpb.Struct {
	s, err := Message(fields)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the string field key, or "" when missing or not a string.
func String(s *structpb.Struct, key string) string {
	if v, ok := s.GetFields()[key]; ok {
		if sv, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			return sv.StringValue
		}
	}
	return ""
}

// Bool returns the bool field key, or false when missing or not a bool.
func Bool(s *structpb.Struct, key string) bool {
	if v, ok := s.GetFields()[key]; ok {
		if bv, ok := v.GetKind().(*structpb.Value_BoolValue); ok {
			return bv.BoolValue
		}
	}
	return false
}

// Int returns the number field key truncated to int, or 0 when missing or not a number.
func Int(s *structpb.Struct, key string) int {
	if v, ok := s.GetFields()[key]; ok {
		if nv, ok := v.GetKind().(*structpb.Value_NumberValue); ok {
			return int(nv.NumberValue)
		}
	}
	return 0
}

// Struct returns the nested object field key, or nil.
func Struct(s *structpb.Struct, key string) *structpb.Struct {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetStructValue()
	}
	return nil
}

// List returns the list field key, or nil.
func List(s *structpb.Struct, key string) []*structpb.Value {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetListValue().GetValues()
	}
	return nil
}
