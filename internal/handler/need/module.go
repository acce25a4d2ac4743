package need

import (
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/webitel/benefit-solver/config"
	"github.com/webitel/benefit-solver/internal/domain/registry"
	"github.com/webitel/benefit-solver/internal/service"
)

type registerParams struct {
	fx.In

	Config       *config.Config
	Dispatcher   *registry.Dispatcher
	Orchestrator *service.Orchestrator
	Logger       *slog.Logger
	Secure       *slog.Logger `name:"secure"`
}

// [REGISTRATION_PIPELINE]
// One handler per configured need, all sharing the orchestrator.
func Register(p registerParams) error {
	for _, cfg := range p.Config.Needs {
		h, err := New(cfg, p.Orchestrator, p.Logger, p.Secure)
		if err != nil {
			return err
		}
		if _, err := p.Dispatcher.Register(h.River(), h); err != nil {
			return fmt.Errorf("register need %s: %w", cfg.Behov, err)
		}
	}
	return nil
}

var Module = fx.Module("need-handler",
	fx.Invoke(Register),
)
