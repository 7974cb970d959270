// Package auditv1 describes taskmgr.audit.v1.AuditService. Audit log reads.
//
// Messages are google.protobuf.Struct values with these fields:
//
//	ListAuditLogs: {userId?, limit?} -> {logs: [...]}
package auditv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"taskmgr/backend/api/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "taskmgr.audit.v1.AuditService"

const (
	AuditService_ListAuditLogs_FullMethodName = "/taskmgr.audit.v1.AuditService/ListAuditLogs"
)

// AuditServiceServer is the server API for AuditService.
type AuditServiceServer interface {
	ListAuditLogs(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedAuditServiceServer returns Unimplemented for every method. Embed it for forward compatibility.
type UnimplementedAuditServiceServer struct{}

func (UnimplementedAuditServiceServer) ListAuditLogs(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, rpc.Unimplemented("ListAuditLogs")
}

// AuditService_ServiceDesc is the grpc.ServiceDesc for AuditService.
var AuditService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.UnaryMethod(ServiceName, "ListAuditLogs", AuditServiceServer.ListAuditLogs),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "audit/v1",
}

// RegisterAuditServiceServer registers srv on s.
func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(&AuditService_ServiceDesc, srv)
}

// AuditServiceClient is the client API for AuditService.
type AuditServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuditServiceClient returns a client over cc.
func NewAuditServiceClient(cc grpc.ClientConnInterface) *AuditServiceClient {
	return &AuditServiceClient{cc: cc}
}

func (c *AuditServiceClient) ListAuditLogs(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return rpc.Invoke(ctx, c.cc, AuditService_ListAuditLogs_FullMethodName, in, opts...)
}
