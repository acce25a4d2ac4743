package clientdi

import (
	"errors"
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/webitel/benefit-solver/config"
	"github.com/webitel/benefit-solver/infra/client/breaker"
	"github.com/webitel/benefit-solver/infra/client/meldekort"
	"github.com/webitel/benefit-solver/infra/client/soap"
	"github.com/webitel/benefit-solver/infra/client/ytelseskontrakt"
	"github.com/webitel/benefit-solver/internal/service"
)

var Module = fx.Module(
	"arena_clients",

	fx.Provide(
		ProvideCredentials,
		ProvideHTTPClient,

		// [CONSTRUCTOR] Provides the resilient backend clients behind the service ports
		fx.Annotate(ProvideYtelseskontrakt, fx.As(new(service.ContractLookup))),
		fx.Annotate(ProvideMeldekort, fx.As(new(service.PaymentRosterLookup))),
	),
)

func ProvideCredentials(cfg *config.Config) (soap.Credentials, error) {
	return soap.ReadCredentials(cfg.Backend.UsernamePath, cfg.Backend.PasswordPath)
}

func ProvideHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Backend.Timeout}
}

func ProvideYtelseskontrakt(cfg *config.Config, creds soap.Credentials, hc *http.Client, logger *slog.Logger) (*ytelseskontrakt.Client, error) {
	if cfg.Backend.YtelseskontraktURL == "" && usesSource(cfg, config.SourceVedtak) {
		return nil, errors.New("backend.ytelseskontrakt_url is required")
	}
	return ytelseskontrakt.New(
		soap.New(cfg.Backend.YtelseskontraktURL, creds, soap.WithHTTPClient(hc)),
		breaker.New(config.SourceVedtak, cfg.Backend.Breaker, logger),
	), nil
}

func ProvideMeldekort(cfg *config.Config, creds soap.Credentials, hc *http.Client, logger *slog.Logger) (*meldekort.Client, error) {
	if cfg.Backend.MeldekortURL == "" && usesSource(cfg, config.SourceMeldekort) {
		return nil, errors.New("backend.meldekort_url is required")
	}
	return meldekort.New(
		soap.New(cfg.Backend.MeldekortURL, creds, soap.WithHTTPClient(hc)),
		breaker.New(config.SourceMeldekort, cfg.Backend.Breaker, logger),
	), nil
}

func usesSource(cfg *config.Config, source string) bool {
	for _, n := range cfg.Needs {
		if n.HasSource(source) {
			return true
		}
	}
	return false
}
