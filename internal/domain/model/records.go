package model

import "time"

// PeriodTypeStop marks a decision that only stops a running benefit.
const PeriodTypeStop = "Stans"

// ContractRecord is one benefit contract as returned by the contract lookup,
// before any filtering.
type ContractRecord struct {
	BenefitType string
	Decisions   []ContractDecision
}

type ContractDecision struct {
	PeriodType string
	Fom        *time.Time
	Tom        *time.Time
}

// PaymentDecision is one decision from the payment roster with its payment lines.
type PaymentDecision struct {
	Lines []PaymentLine
}

type PaymentLine struct {
	Fom              *time.Time
	Tom              *time.Time
	DailyRate        float64
	Amount           float64
	PayoutPercentage float64
}
