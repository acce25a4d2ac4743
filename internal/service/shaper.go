package service

import (
	"time"

	"github.com/webitel/benefit-solver/internal/domain/model"
)

// OpenEndedPolicy decides what happens to a contract decision without an end date.
type OpenEndedPolicy int8

const (
	// CloseAtToday treats the decision as still running and ends it at today's date.
	CloseAtToday OpenEndedPolicy = iota
	// DropOpenEnded leaves the decision out.
	DropOpenEnded
)

// ShapeContracts keeps the decisions of contracts of benefitType, skipping pure stop
// decisions and decisions without a start date. The result is never nil.
func ShapeContracts(records []model.ContractRecord, benefitType string, policy OpenEndedPolicy, today time.Time) []model.Period {
	out := make([]model.Period, 0)
	for _, rec := range records {
		if rec.BenefitType != benefitType {
			continue
		}
		for _, dec := range rec.Decisions {
			if dec.PeriodType == model.PeriodTypeStop || dec.Fom == nil {
				continue
			}

			tom := dec.Tom
			if tom == nil {
				if policy == DropOpenEnded {
					continue
				}
				tom = &today
			}

			out = append(out, model.Period{
				Fom: model.DateOf(*dec.Fom),
				Tom: model.DateOf(*tom),
			})
		}
	}
	return out
}

// ShapePaymentRoster flattens decisions into one period per payment line. The category
// was already applied by the lookup, so nothing is filtered on benefit type. Lines without
// a complete period cannot be placed on a timeline; they are left out and counted in skipped.
func ShapePaymentRoster(decisions []model.PaymentDecision) (out []model.PaymentPeriod, skipped int) {
	out = make([]model.PaymentPeriod, 0)
	for _, dec := range decisions {
		for _, line := range dec.Lines {
			if line.Fom == nil || line.Tom == nil {
				skipped++
				continue
			}
			out = append(out, model.PaymentPeriod{
				Fom:              model.DateOf(*line.Fom),
				Tom:              model.DateOf(*line.Tom),
				DailyRate:        line.DailyRate,
				Amount:           line.Amount,
				PayoutPercentage: line.PayoutPercentage,
			})
		}
	}
	return out, skipped
}
