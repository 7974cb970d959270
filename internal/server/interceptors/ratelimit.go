package interceptors

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const limiterSweepInterval = 5 * time.Minute

// ipLimiter keeps one token bucket per client IP.
type ipLimiter struct {
	limit     rate.Limit
	burst     int
	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiter(perMinute, burst int) *ipLimiter {
	if burst <= 0 {
		burst = perMinute
	}
	return &ipLimiter{
		limit:     rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		burst:     burst,
		buckets:   make(map[string]*rate.Limiter),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) >= limiterSweepInterval {
		// A full bucket has been idle long enough to forget.
		for k, b := range l.buckets {
			if b.TokensAt(now) >= float64(l.burst) {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.buckets[ip]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[ip] = b
	}
	return b.AllowN(now, 1)
}

// RateLimitUnary returns a unary server interceptor that throttles methods per client IP
// with a token bucket of perMinute requests and the given burst. Only full method names in
// methods are throttled; a nil or empty set throttles every method. perMinute <= 0 disables it.
// This sits in front of the OTP issuance windows and does not replace them.
func RateLimitUnary(perMinute, burst int, methods map[string]bool) grpc.UnaryServerInterceptor {
	if perMinute <= 0 {
		return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
			return handler(ctx, req)
		}
	}
	limiter := newIPLimiter(perMinute, burst)
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if len(methods) > 0 && !methods[info.FullMethod] {
			return handler(ctx, req)
		}
		if !limiter.allow(ClientIP(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, "too many requests")
		}
		return handler(ctx, req)
	}
}
