package handler

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskmgr/backend/internal/otp/service"
)

// ErrorDomain is the ErrorInfo domain attached to engine failures.
const ErrorDomain = "otp.taskmgr"

var kindCodes = map[service.Kind]codes.Code{
	service.KindRateLimited:          codes.ResourceExhausted,
	service.KindInvalidOrExpiredCode: codes.InvalidArgument,
	service.KindLockedOut:            codes.ResourceExhausted,
	service.KindAccountNotFound:      codes.NotFound,
	service.KindValidation:           codes.InvalidArgument,
}

// toStatus maps an engine error to a gRPC status. Engine errors keep their
// message and carry the kind as ErrorInfo.Reason; anything else is Internal.
func toStatus(ctx context.Context, err error) error {
	var e *service.Error
	if !errors.As(err, &e) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return status.FromContextError(err).Err()
		}
		slog.ErrorContext(ctx, "otp: request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	code, ok := kindCodes[e.Kind]
	if !ok {
		code = codes.Internal
	}
	st := status.New(code, e.Message)
	withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: string(e.Kind), Domain: ErrorDomain})
	if derr != nil {
		return st.Err()
	}
	return withInfo.Err()
}

// KindFromStatus returns the engine error kind carried by a status error, or "".
func KindFromStatus(err error) service.Kind {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return service.Kind(info.GetReason())
		}
	}
	return ""
}
