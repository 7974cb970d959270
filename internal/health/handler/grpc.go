package handler

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	healthv1 "taskmgr/backend/api/health/v1"
	"taskmgr/backend/api/rpc"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether a backing dependency is reachable. store.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server implements HealthService for readiness and liveness.
type Server struct {
	healthv1.UnimplementedHealthServiceServer
	store Pinger
}

// NewServer returns a new Health gRPC server. store may be nil; then HealthCheck only reports liveness.
func NewServer(store Pinger) *Server {
	return &Server{store: store}
}

// HealthCheck returns {status: "SERVING"} when the store answers a ping, Unavailable otherwise.
func (s *Server) HealthCheck(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.store != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := s.store.Ping(pingCtx); err != nil {
			slog.WarnContext(ctx, "health: store ping failed", "error", err)
			return nil, status.Error(codes.Unavailable, "store unavailable")
		}
	}
	return rpc.Message(map[string]any{"status": "SERVING"})
}
