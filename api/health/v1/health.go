// Package healthv1 describes taskmgr.health.v1.HealthService. Readiness checks.
//
// Messages are google.protobuf.Struct values with these fields:
//
//	HealthCheck: {} -> {status}
package healthv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"taskmgr/backend/api/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "taskmgr.health.v1.HealthService"

const (
	HealthService_HealthCheck_FullMethodName = "/taskmgr.health.v1.HealthService/HealthCheck"
)

// HealthServiceServer is the server API for HealthService.
type HealthServiceServer interface {
	HealthCheck(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedHealthServiceServer returns Unimplemented for every method. Embed it for forward compatibility.
type UnimplementedHealthServiceServer struct{}

func (UnimplementedHealthServiceServer) HealthCheck(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, rpc.Unimplemented("HealthCheck")
}

// HealthService_ServiceDesc is the grpc.ServiceDesc for HealthService.
var HealthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HealthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.UnaryMethod(ServiceName, "HealthCheck", HealthServiceServer.HealthCheck),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "health/v1",
}

// RegisterHealthServiceServer registers srv on s.
func RegisterHealthServiceServer(s grpc.ServiceRegistrar, srv HealthServiceServer) {
	s.RegisterService(&HealthService_ServiceDesc, srv)
}

// HealthServiceClient is the client API for HealthService.
type HealthServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewHealthServiceClient returns a client over cc.
func NewHealthServiceClient(cc grpc.ClientConnInterface) *HealthServiceClient {
	return &HealthServiceClient{cc: cc}
}

func (c *HealthServiceClient) HealthCheck(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke(ctx, c.cc, HealthService_HealthCheck_FullMethodName, in, opts...)
}
