package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/webitel/benefit-solver/internal/domain/model"
	"github.com/webitel/benefit-solver/internal/metrics"
)

// ContractLookupMiddleware implements [DECORATOR_PATTERN] to add timing and outcome
// logging to the contract source without touching the client.
type ContractLookupMiddleware struct {
	Next   ContractLookup
	Logger *slog.Logger
}

func NewContractLookupMiddleware(next ContractLookup, logger *slog.Logger) ContractLookup {
	return &ContractLookupMiddleware{Next: next, Logger: logger}
}

func (m *ContractLookupMiddleware) LookupBenefitPeriods(ctx context.Context, subjectID string, w model.Window) ([]model.ContractRecord, error) {
	start := time.Now()
	records, err := m.Next.LookupBenefitPeriods(ctx, subjectID, w)
	observe(ctx, m.Logger, "vedtak", start, err, len(records), w)
	return records, err
}

// PaymentRosterLookupMiddleware is the payment-roster counterpart of ContractLookupMiddleware.
type PaymentRosterLookupMiddleware struct {
	Next   PaymentRosterLookup
	Logger *slog.Logger
}

func NewPaymentRosterLookupMiddleware(next PaymentRosterLookup, logger *slog.Logger) PaymentRosterLookup {
	return &PaymentRosterLookupMiddleware{Next: next, Logger: logger}
}

func (m *PaymentRosterLookupMiddleware) LookupPaymentRoster(ctx context.Context, subjectID string, w model.Window, category string) ([]model.PaymentDecision, error) {
	start := time.Now()
	decisions, err := m.Next.LookupPaymentRoster(ctx, subjectID, w, category)
	observe(ctx, m.Logger, "meldekort", start, err, len(decisions), w)
	return decisions, err
}

// observe records one lookup. Failures are logged at warn: the dispatcher owns the
// single error line for a failed need.
func observe(ctx context.Context, logger *slog.Logger, source string, start time.Time, err error, n int, w model.Window) {
	duration := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LookupDuration.WithLabelValues(source, status).Observe(duration.Seconds())

	if err != nil {
		logger.WarnContext(ctx, "LOOKUP_FAILED",
			"source", source,
			"window", w.String(),
			"err", err,
			"duration_ms", duration.Milliseconds(),
		)
		return
	}

	logger.DebugContext(ctx, "LOOKUP_COMPLETED",
		"source", source,
		"window", w.String(),
		"records", n,
		"duration_ms", duration.Milliseconds(),
	)
}
