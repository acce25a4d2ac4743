package service

import (
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(NewOrchestrator),

	// [DECORATION_LAYER] Intercept the lookups to add cross-cutting concerns.
	// The decorated values are only visible inside this module, i.e. to the Orchestrator.
	fx.Decorate(func(orig ContractLookup, logger *slog.Logger) ContractLookup {
		return NewContractLookupMiddleware(orig, logger)
	}),
	fx.Decorate(func(orig PaymentRosterLookup, logger *slog.Logger) PaymentRosterLookup {
		return NewPaymentRosterLookupMiddleware(orig, logger)
	}),
)
