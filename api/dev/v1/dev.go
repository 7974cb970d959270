// Package devv1 describes taskmgr.dev.v1.DevService. Development-only helpers. Never registered in production.
//
// Messages are google.protobuf.Struct values with these fields:
//
//	GetOTP: {email, purpose} -> {otp, note}
package devv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"taskmgr/backend/api/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "taskmgr.dev.v1.DevService"

const (
	DevService_GetOTP_FullMethodName = "/taskmgr.dev.v1.DevService/GetOTP"
)

// DevServiceServer is the server API for DevService.
type DevServiceServer interface {
	GetOTP(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedDevServiceServer returns Unimplemented for every method. Embed it for forward compatibility.
type UnimplementedDevServiceServer struct{}

func (UnimplementedDevServiceServer) GetOTP(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, rpc.Unimplemented("GetOTP")
}

// DevService_ServiceDesc is the grpc.ServiceDesc for DevService.
var DevService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DevServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.UnaryMethod(ServiceName, "GetOTP", DevServiceServer.GetOTP),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dev/v1",
}

// RegisterDevServiceServer registers srv on s.
func RegisterDevServiceServer(s grpc.ServiceRegistrar, srv DevServiceServer) {
	s.RegisterService(&DevService_ServiceDesc, srv)
}

// DevServiceClient is the client API for DevService.
type DevServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDevServiceClient returns a client over cc.
func NewDevServiceClient(cc grpc.ClientConnInterface) *DevServiceClient {
	return &DevServiceClient{cc: cc}
}

func (c *DevServiceClient) GetOTP(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke(ctx, c.cc, DevService_GetOTP_FullMethodName, in, opts...)
}
