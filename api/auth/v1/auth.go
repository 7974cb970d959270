// Package authv1 describes taskmgr.auth.v1.AuthService. Password registration, login and the caller's own profile.
//
// Messages are google.protobuf.Struct values with these fields:
//
//	Register: {name, email, password, rootAdminKey?} -> {accessToken, expiresAt, user}
//	Login: {email, password} -> {accessToken, expiresAt, user}
//	Me: {} -> {user}
package authv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"taskmgr/backend/api/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "taskmgr.auth.v1.AuthService"

const (
	AuthService_Register_FullMethodName = "/taskmgr.auth.v1.AuthService/Register"
	AuthService_Login_FullMethodName    = "/taskmgr.auth.v1.AuthService/Login"
	AuthService_Me_FullMethodName       = "/taskmgr.auth.v1.AuthService/Me"
)

// AuthServiceServer is the server API for AuthService.
type AuthServiceServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Me(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedAuthServiceServer returns Unimplemented for every method. Embed it for forward compatibility.
type UnimplementedAuthServiceServer struct{}

func (UnimplementedAuthServiceServer) Register(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, rpc.Unimplemented("Register")
}

func (UnimplementedAuthServiceServer) Login(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, rpc.Unimplemented("Login")
}

func (UnimplementedAuthServiceServer) Me(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, rpc.Unimplemented("Me")
}

// AuthService_ServiceDesc is the grpc.ServiceDesc for AuthService.
var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.UnaryMethod(ServiceName, "Register", AuthServiceServer.Register),
		rpc.UnaryMethod(ServiceName, "Login", AuthServiceServer.Login),
		rpc.UnaryMethod(ServiceName, "Me", AuthServiceServer.Me),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auth/v1",
}

// RegisterAuthServiceServer registers srv on s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

// AuthServiceClient is the client API for AuthService.
type AuthServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuthServiceClient returns a client over cc.
func NewAuthServiceClient(cc grpc.ClientConnInterface) *AuthServiceClient {
	return &AuthServiceClient{cc: cc}
}

func (c *AuthServiceClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke(ctx, c.cc, AuthService_Register_FullMethodName, in, opts...)
}

func (c *AuthServiceClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke(ctx, c.cc, AuthService_Login_FullMethodName, in, opts...)
}

func (c *AuthServiceClient) Me(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke(ctx, c.cc, AuthService_Me_FullMethodName, in, opts...)
}
