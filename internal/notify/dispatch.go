package notify

import (
	"context"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single asynchronous delivery.
const DefaultTimeout = 15 * time.Second

// Dispatcher runs deliveries off the request path.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher returns a Dispatcher for n. timeout <= 0 uses DefaultTimeout; logger may be nil.
func NewDispatcher(n Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{notifier: n, timeout: timeout, logger: logger}
}

// Dispatch delivers msg in a goroutine and returns immediately. Request
// cancellation does not abort delivery; failures are logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	if d == nil || d.notifier == nil {
		return
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("notify: delivery panicked", "purpose", string(msg.Purpose), "panic", r)
			}
		}()
		if err := d.notifier.Notify(sendCtx, msg); err != nil {
			d.logger.Warn("notify: delivery failed", "purpose", string(msg.Purpose), "error", err)
		}
	}()
}
