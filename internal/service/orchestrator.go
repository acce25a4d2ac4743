package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/webitel/benefit-solver/internal/domain/model"
)

const (
	KeyDecisionPeriods = "vedtaksperioder"
	KeyPaymentPeriods  = "meldekortperioder"
)

var ErrNoSources = errors.New("orchestrator: plan has no sources")

// Plan describes which sources answer one need type and how.
type Plan struct {
	Behov string

	// Contracts enables the contract source, filtered on BenefitType.
	Contracts   bool
	BenefitType string
	OpenEnded   OpenEndedPolicy

	// Payments enables the payment-roster source, queried with Category.
	Payments bool
	Category string
}

// Orchestrator queries the sources of a plan and assembles the solution.
type Orchestrator struct {
	contracts ContractLookup
	payments  PaymentRosterLookup
	logger    *slog.Logger
	now       func() time.Time
}

func NewOrchestrator(contracts ContractLookup, payments PaymentRosterLookup, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		contracts: contracts,
		payments:  payments,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for open-ended decisions.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	c := *o
	c.now = now
	return &c
}

// Solve returns the solution for one need: a list of periods when the plan has one
// source, or a map keyed by source when it has both.
// [CONCURRENCY_OPTIMIZATION] Sources are queried in parallel; either failing fails the need.
func (o *Orchestrator) Solve(ctx context.Context, plan Plan, subjectID string, w model.Window) (any, error) {
	if !plan.Contracts && !plan.Payments {
		return nil, fmt.Errorf("%w: %s", ErrNoSources, plan.Behov)
	}

	var (
		decisions []model.Period
		payments  []model.PaymentPeriod
		today     = o.now()
	)

	g, gCtx := errgroup.WithContext(ctx)

	if plan.Contracts {
		g.Go(func() error {
			records, err := o.contracts.LookupBenefitPeriods(gCtx, subjectID, w)
			if err != nil {
				return fmt.Errorf("contract lookup: %w", err)
			}
			decisions = ShapeContracts(records, plan.BenefitType, plan.OpenEnded, today)
			return nil
		})
	}

	if plan.Payments {
		g.Go(func() error {
			roster, err := o.payments.LookupPaymentRoster(gCtx, subjectID, w, plan.Category)
			if err != nil {
				return fmt.Errorf("payment roster lookup: %w", err)
			}
			var skipped int
			payments, skipped = ShapePaymentRoster(roster)
			if skipped > 0 {
				o.logger.DebugContext(gCtx, "PAYMENT_LINES_SKIPPED", "behov", plan.Behov, "skipped", skipped)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch {
	case plan.Contracts && plan.Payments:
		return map[string]any{
			KeyDecisionPeriods: decisions,
			KeyPaymentPeriods:  payments,
		}, nil
	case plan.Contracts:
		return decisions, nil
	default:
		return payments, nil
	}
}
