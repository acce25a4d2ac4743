package service

import (
	"context"

	"github.com/webitel/benefit-solver/internal/domain/model"
)

// ContractLookup fetches the benefit contracts of a person within a window.
type ContractLookup interface {
	LookupBenefitPeriods(ctx context.Context, subjectID string, w model.Window) ([]model.ContractRecord, error)
}

// PaymentRosterLookup fetches the payment decisions of a person for one benefit category.
type PaymentRosterLookup interface {
	LookupPaymentRoster(ctx context.Context, subjectID string, w model.Window, category string) ([]model.PaymentDecision, error)
}
