// Package userv1 describes taskmgr.user.v1.UserService. Authenticated user reads.
//
// Messages are google.protobuf.Struct values with these fields:
//
//	GetUser: {userId} -> {user}
//	LookupUser: {email} -> {user}
package userv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"taskmgr/backend/api/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "taskmgr.user.v1.UserService"

const (
	UserService_GetUser_FullMethodName    = "/taskmgr.user.v1.UserService/GetUser"
	UserService_LookupUser_FullMethodName = "/taskmgr.user.v1.UserService/LookupUser"
)

// UserServiceServer is the server API for UserService.
type UserServiceServer interface {
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LookupUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedUserServiceServer returns Unimplemented for every method. Embed it for forward compatibility.
type UnimplementedUserServiceServer struct{}

func (UnimplementedUserServiceServer) GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, rpc.Unimplemented("GetUser")
}

func (UnimplementedUserServiceServer) LookupUser(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, rpc.Unimplemented("LookupUser")
}

// UserService_ServiceDesc is the grpc.ServiceDesc for UserService.
var UserService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.UnaryMethod(ServiceName, "GetUser", UserServiceServer.GetUser),
		rpc.UnaryMethod(ServiceName, "LookupUser", UserServiceServer.LookupUser),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "user/v1",
}

// RegisterUserServiceServer registers srv on s.
func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&UserService_ServiceDesc, srv)
}

// UserServiceClient is the client API for UserService.
type UserServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewUserServiceClient returns a client over cc.
func NewUserServiceClient(cc grpc.ClientConnInterface) *UserServiceClient {
	return &UserServiceClient{cc: cc}
}

func (c *UserServiceClient) GetUser(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke(ctx, c.cc, UserService_GetUser_FullMethodName, in, opts...)
}

func (c *UserServiceClient) LookupUser(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke(ctx, c.cc, UserService_LookupUser_FullMethodName, in, opts...)
}
