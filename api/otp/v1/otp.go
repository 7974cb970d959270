// Package otpv1 describes taskmgr.otp.v1.OTPService. One-time code issuance, verification and password reset completion.
//
// Messages are google.protobuf.Struct values with these fields:
//
//	RequestChallenge: {email, purpose} -> {expiresInSeconds}
//	VerifyChallenge: {email, purpose, code} -> {verified, accessToken?, expiresAt?, userId?}
//	CompleteReset: {email, code, newPassword} -> {reset}
package otpv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"taskmgr/backend/api/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "taskmgr.otp.v1.OTPService"

const (
	OTPService_RequestChallenge_FullMethodName = "/taskmgr.otp.v1.OTPService/RequestChallenge"
	OTPService_VerifyChallenge_FullMethodName  = "/taskmgr.otp.v1.OTPService/VerifyChallenge"
	OTPService_CompleteReset_FullMethodName    = "/taskmgr.otp.v1.OTPService/CompleteReset"
)

// OTPServiceServer is the server API for OTPService.
type OTPServiceServer interface {
	RequestChallenge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyChallenge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteReset(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedOTPServiceServer returns Unimplemented for every method. Embed it for forward compatibility.
type UnimplementedOTPServiceServer struct{}

func (UnimplementedOTPServiceServer) RequestChallenge(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, rpc.Unimplemented("RequestChallenge")
}

func (UnimplementedOTPServiceServer) VerifyChallenge(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, rpc.Unimplemented("VerifyChallenge")
}

func (UnimplementedOTPServiceServer) CompleteReset(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, rpc.Unimplemented("CompleteReset")
}

// OTPService_ServiceDesc is the grpc.ServiceDesc for OTPService.
var OTPService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OTPServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.UnaryMethod(ServiceName, "RequestChallenge", OTPServiceServer.RequestChallenge),
		rpc.UnaryMethod(ServiceName, "VerifyChallenge", OTPServiceServer.VerifyChallenge),
		rpc.UnaryMethod(ServiceName, "CompleteReset", OTPServiceServer.CompleteReset),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "otp/v1",
}

// RegisterOTPServiceServer registers srv on s.
func RegisterOTPServiceServer(s grpc.ServiceRegistrar, srv OTPServiceServer) {
	s.RegisterService(&OTPService_ServiceDesc, srv)
}

// OTPServiceClient is the client API for OTPService.
type OTPServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewOTPServiceClient returns a client over cc.
func NewOTPServiceClient(cc grpc.ClientConnInterface) *OTPServiceClient {
	return &OTPServiceClient{cc: cc}
}

func (c *OTPServiceClient) RequestChallenge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke(ctx, c.cc, OTPService_RequestChallenge_FullMethodName, in, opts...)
}

func (c *OTPServiceClient) VerifyChallenge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke(ctx, c.cc, OTPService_VerifyChallenge_FullMethodName, in, opts...)
}

func (c *OTPServiceClient) CompleteReset(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke(ctx, c.cc, OTPService_CompleteReset_FullMethodName, in, opts...)
}
