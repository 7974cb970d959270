package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"taskmgr/backend/internal/otp/domain"
)

const meterName = "taskmgr/backend/internal/otp/service"

// Verification outcomes recorded on otp.verifications.
const (
	outcomeSuccess         = "success"
	outcomeInvalid         = "invalid"
	outcomeLocked          = "locked"
	outcomeAccountNotFound = "account_not_found"
	outcomeError           = "error"
)

type metrics struct {
	issued        metric.Int64Counter
	rateLimited   metric.Int64Counter
	verifications metric.Int64Counter
}

// newMetrics registers the engine counters on m, or on the global meter provider when m is nil.
func newMetrics(m metric.Meter) (*metrics, error) {
	if m == nil {
		m = otel.Meter(meterName)
	}
	issued, err := m.Int64Counter("otp.challenges.issued",
		metric.WithDescription("Challenges created"))
	if err != nil {
		return nil, err
	}
	rateLimited, err := m.Int64Counter("otp.challenges.rate_limited",
		metric.WithDescription("Issuance requests rejected by a rate-limit window"))
	if err != nil {
		return nil, err
	}
	verifications, err := m.Int64Counter("otp.verifications",
		metric.WithDescription("Verification and reset attempts by outcome"))
	if err != nil {
		return nil, err
	}
	return &metrics{issued: issued, rateLimited: rateLimited, verifications: verifications}, nil
}

func (m *metrics) recordIssued(ctx context.Context, purpose domain.Purpose) {
	m.issued.Add(ctx, 1, metric.WithAttributes(attribute.String("purpose", string(purpose))))
}

func (m *metrics) recordRateLimited(ctx context.Context, purpose domain.Purpose, window string) {
	m.rateLimited.Add(ctx, 1, metric.WithAttributes(
		attribute.String("purpose", string(purpose)),
		attribute.String("window", window),
	))
}

func (m *metrics) recordVerification(ctx context.Context, purpose domain.Purpose, outcome string) {
	m.verifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("purpose", string(purpose)),
		attribute.String("outcome", outcome),
	))
}

func outcomeFor(err error) string {
	switch KindOf(err) {
	case "":
		if err == nil {
			return outcomeSuccess
		}
		return outcomeError
	case KindLockedOut:
		return outcomeLocked
	case KindAccountNotFound:
		return outcomeAccountNotFound
	default:
		return outcomeInvalid
	}
}
