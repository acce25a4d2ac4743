// Package need answers benefit-period needs on the rapid. One Handler is built per
// configured need type; they differ only in data.
package need

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/webitel/benefit-solver/config"
	"github.com/webitel/benefit-solver/internal/domain/model"
	"github.com/webitel/benefit-solver/internal/domain/packet"
	"github.com/webitel/benefit-solver/internal/domain/registry"
	"github.com/webitel/benefit-solver/internal/domain/river"
	"github.com/webitel/benefit-solver/internal/service"
)

// Solver produces the solution for one need.
type Solver interface {
	Solve(ctx context.Context, plan service.Plan, subjectID string, w model.Window) (any, error)
}

type Handler struct {
	plan   service.Plan
	river  *river.River
	solver Solver
	logger *slog.Logger
	secure *slog.Logger
}

var _ registry.Handler = (*Handler)(nil)

func New(cfg config.NeedConfig, solver Solver, logger, secure *slog.Logger) (*Handler, error) {
	plan, err := PlanFor(cfg)
	if err != nil {
		return nil, err
	}
	r := river.NewNeed(cfg.Behov,
		river.RequireKey(packet.KeyID, packet.KeySubject, packet.KeyVedtaksID),
		river.RequireDate(packet.KeyWindowStart),
		river.RequireDate(packet.KeyWindowEnd),
	)
	return &Handler{
		plan:   plan,
		river:  r,
		solver: solver,
		logger: logger.With("behov", cfg.Behov),
		secure: secure.With("behov", cfg.Behov),
	}, nil
}

// PlanFor translates a need's configuration into the sources to query.
func PlanFor(cfg config.NeedConfig) (service.Plan, error) {
	plan := service.Plan{
		Behov:       cfg.Behov,
		Contracts:   cfg.HasSource(config.SourceVedtak),
		BenefitType: cfg.Ytelsetype,
		Payments:    cfg.HasSource(config.SourceMeldekort),
		Category:    cfg.Tema,
	}

	switch cfg.OpenEnded {
	case config.OpenEndedToday, "":
		plan.OpenEnded = service.CloseAtToday
	case config.OpenEndedDrop:
		plan.OpenEnded = service.DropOpenEnded
	default:
		return service.Plan{}, fmt.Errorf("need %s: unknown open-ended policy %q", cfg.Behov, cfg.OpenEnded)
	}

	if !plan.Contracts && !plan.Payments {
		return service.Plan{}, fmt.Errorf("%w: %s", service.ErrNoSources, cfg.Behov)
	}
	return plan, nil
}

func (h *Handler) Behov() string { return h.plan.Behov }

func (h *Handler) River() *river.River { return h.river }

// OnPacket answers a packet already matched by River. The packet is the handler's own copy.
func (h *Handler) OnPacket(ctx context.Context, p *packet.Packet) registry.Result {
	subjectID, _ := p.String(packet.KeySubject)

	fom, err := p.Date(packet.KeyWindowStart)
	if err != nil {
		return registry.Fail(err)
	}
	tom, err := p.Date(packet.KeyWindowEnd)
	if err != nil {
		return registry.Fail(err)
	}
	w, err := model.NewWindow(fom, tom)
	if err != nil {
		return registry.Fail(err)
	}

	h.logger.InfoContext(ctx, "NEED_RECEIVED", "window", w.String())
	h.secure.InfoContext(ctx, "NEED_RECEIVED", "window", w.String(), "fødselsnummer", subjectID)

	solution, err := h.solver.Solve(ctx, h.plan, subjectID, w)
	if err != nil {
		return registry.Fail(err)
	}

	if err := p.Set(packet.KeySolution, map[string]any{h.plan.Behov: solution}); err != nil {
		return registry.Fail(fmt.Errorf("attach solution: %w", err))
	}

	h.logger.InfoContext(ctx, "NEED_SOLVED")
	return registry.Solve(p)
}
