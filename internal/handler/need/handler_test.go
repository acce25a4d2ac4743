package need_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/benefit-solver/config"
	"github.com/webitel/benefit-solver/internal/domain/correlation"
	"github.com/webitel/benefit-solver/internal/domain/model"
	"github.com/webitel/benefit-solver/internal/domain/packet"
	"github.com/webitel/benefit-solver/internal/domain/registry"
	"github.com/webitel/benefit-solver/internal/handler/need"
	"github.com/webitel/benefit-solver/internal/service"
	"github.com/webitel/benefit-solver/internal/testutil"
)

type contracts struct {
	calls   atomic.Int32
	mu      sync.Mutex
	subject []string
	windows []model.Window
	records []model.ContractRecord
	err     error
}

func (c *contracts) LookupBenefitPeriods(_ context.Context, subjectID string, w model.Window) ([]model.ContractRecord, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.subject = append(c.subject, subjectID)
	c.windows = append(c.windows, w)
	c.mu.Unlock()
	return c.records, c.err
}

type roster struct {
	calls     atomic.Int32
	decisions []model.PaymentDecision
}

func (r *roster) LookupPaymentRoster(context.Context, string, model.Window, string) ([]model.PaymentDecision, error) {
	r.calls.Add(1)
	return r.decisions, nil
}

type publisher struct {
	mu      sync.Mutex
	packets [][]byte
}

func (p *publisher) Publish(_ context.Context, pk *packet.Packet) error {
	raw, err := pk.MarshalJSON()
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.packets = append(p.packets, raw)
	return nil
}

func (p *publisher) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.packets))
	for i, raw := range p.packets {
		out[i] = string(raw)
	}
	return out
}

type fixture struct {
	dispatcher *registry.Dispatcher
	contracts  *contracts
	roster     *roster
	pub        *publisher
	logs       *testutil.LogHandlerSpy
	secure     *testutil.LogHandlerSpy
}

func today() time.Time { return time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC) }

func newFixture(t *testing.T, needs ...config.NeedConfig) *fixture {
	t.Helper()
	f := &fixture{
		contracts: &contracts{},
		roster:    &roster{},
		pub:       &publisher{},
		logs:      testutil.NewLogHandlerSpy(),
		secure:    testutil.NewLogHandlerSpy(),
	}
	logger := slog.New(correlation.NewHandler(f.logs))
	secure := slog.New(correlation.NewHandler(f.secure))
	f.dispatcher = registry.NewDispatcher(logger, registry.WithSecureLogger(secure), registry.WithWorkers(4))

	solver := service.NewOrchestrator(f.contracts, f.roster, logger).WithClock(today)
	for _, cfg := range needs {
		h, err := need.New(cfg, solver, logger, secure)
		require.NoError(t, err)
		_, err = f.dispatcher.Register(h.River(), h)
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) dispatch(t *testing.T, raw string) []registry.Result {
	t.Helper()
	p, err := packet.Parse([]byte(raw))
	require.NoError(t, err)
	return f.dispatcher.Dispatch(context.Background(), p, f.pub)
}

var dagpengerContractsOnly = config.NeedConfig{
	Behov:      "Dagpenger",
	Ytelsetype: "Dagpenger",
	Tema:       "DAG",
	Sources:    []string{config.SourceVedtak},
	OpenEnded:  config.OpenEndedToday,
}

var aapBothSources = config.NeedConfig{
	Behov:      "Arbeidsavklaringspenger",
	Ytelsetype: "Arbeidsavklaringspenger",
	Tema:       "AAP",
	Sources:    []string{config.SourceVedtak, config.SourceMeldekort},
	OpenEnded:  config.OpenEndedToday,
}

const dagpengerNeed = `{"@behov":"Dagpenger","@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`

func day(s string) *time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestHandler_OpenEndedContractEndsToday(t *testing.T) {
	f := newFixture(t, dagpengerContractsOnly)
	f.contracts.records = []model.ContractRecord{{
		BenefitType: "Dagpenger",
		Decisions:   []model.ContractDecision{{PeriodType: "Opphør", Fom: day("2021-01-05")}},
	}}

	results := f.dispatch(t, dagpengerNeed)

	require.Len(t, results, 1)
	require.Equal(t, registry.Solved, results[0].Outcome)
	require.Len(t, f.pub.Published(), 1)
	assert.JSONEq(t, `{
		"@behov":"Dagpenger","@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1",
		"periodeFom":"2021-01-01","periodeTom":"2021-02-01",
		"@løsning":{"Dagpenger":[{"fom":"2021-01-05","tom":"2021-03-15"}]}
	}`, f.pub.Published()[0])
}

func TestHandler_NullSolutionIsAnswered(t *testing.T) {
	f := newFixture(t, dagpengerContractsOnly)
	f.contracts.records = []model.ContractRecord{{
		BenefitType: "Dagpenger",
		Decisions:   []model.ContractDecision{{PeriodType: "Opphør", Fom: day("2021-01-05")}},
	}}

	results := f.dispatch(t, `{"@behov":"Dagpenger","@id":"x1","@løsning":null,"fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`)

	require.Len(t, results, 1)
	require.Equal(t, registry.Solved, results[0].Outcome, "cause: %v", results[0].Cause)
	assert.Equal(t, int32(1), f.contracts.calls.Load())
	assert.Empty(t, f.logs.ByLevel(slog.LevelError))
	require.Len(t, f.pub.Published(), 1)
	assert.JSONEq(t, `{
		"@behov":"Dagpenger","@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1",
		"periodeFom":"2021-01-01","periodeTom":"2021-02-01",
		"@løsning":{"Dagpenger":[{"fom":"2021-01-05","tom":"2021-03-15"}]}
	}`, f.pub.Published()[0])
}

func TestHandler_LooksUpWithPacketWindowAndSubject(t *testing.T) {
	f := newFixture(t, dagpengerContractsOnly)

	f.dispatch(t, dagpengerNeed)

	require.Equal(t, []string{"123"}, f.contracts.subject)
	require.Len(t, f.contracts.windows, 1)
	assert.Equal(t, "2021-01-01..2021-02-01", f.contracts.windows[0].String())
	assert.Zero(t, f.roster.calls.Load(), "payment roster is not configured for this need")
	assert.Len(t, f.pub.Published(), 1)
}

func TestHandler_BothSourcesAreMerged(t *testing.T) {
	f := newFixture(t, aapBothSources)
	f.contracts.records = []model.ContractRecord{{
		BenefitType: "Arbeidsavklaringspenger",
		Decisions:   []model.ContractDecision{{PeriodType: "Ny rettighet", Fom: day("2021-01-01"), Tom: day("2021-06-30")}},
	}}
	f.roster.decisions = []model.PaymentDecision{{Lines: []model.PaymentLine{
		{Fom: day("2021-01-04"), Tom: day("2021-01-17"), DailyRate: 870, Amount: 8700, PayoutPercentage: 100},
	}}}

	f.dispatch(t, `{"@behov":["Arbeidsavklaringspenger"],"@id":"x2","fødselsnummer":"123","vedtaksperiodeId":"v2","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`)

	require.Len(t, f.pub.Published(), 1)
	assert.JSONEq(t, `{
		"@behov":["Arbeidsavklaringspenger"],"@id":"x2","fødselsnummer":"123","vedtaksperiodeId":"v2",
		"periodeFom":"2021-01-01","periodeTom":"2021-02-01",
		"@løsning":{"Arbeidsavklaringspenger":{
			"vedtaksperioder":[{"fom":"2021-01-01","tom":"2021-06-30"}],
			"meldekortperioder":[{"fom":"2021-01-04","tom":"2021-01-17","dagsats":870,"beløp":8700,"utbetalingsgrad":100}]
		}}
	}`, f.pub.Published()[0])
}

func TestHandler_IgnoresPacketsItCannotAnswer(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"other_need", `{"@behov":"Foreldrepenger","@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`},
		{"already_solved", `{"@behov":"Dagpenger","@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01","@løsning":{}}`},
		{"missing_id", `{"@behov":"Dagpenger","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`},
		{"missing_subject", `{"@behov":"Dagpenger","@id":"x1","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`},
		{"missing_vedtaksperiode", `{"@behov":"Dagpenger","@id":"x1","fødselsnummer":"123","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`},
		{"missing_window_end", `{"@behov":"Dagpenger","@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01"}`},
		{"malformed_window_start", `{"@behov":"Dagpenger","@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"01.01.2021","periodeTom":"2021-02-01"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, dagpengerContractsOnly)

			results := f.dispatch(t, tt.raw)

			assert.Empty(t, results)
			assert.Zero(t, f.contracts.calls.Load())
			assert.Empty(t, f.pub.Published())
			assert.Empty(t, f.logs.ByLevel(slog.LevelError))
		})
	}
}

func TestHandler_BackendFailureLogsOnceAndPublishesNothing(t *testing.T) {
	f := newFixture(t, dagpengerContractsOnly)
	f.contracts.err = errors.New("SOAP fault: personen finnes ikke")

	results := f.dispatch(t, dagpengerNeed)

	require.Len(t, results, 1)
	assert.Equal(t, registry.Failed, results[0].Outcome)
	assert.Empty(t, f.pub.Published())

	errs := f.logs.ByLevel(slog.LevelError)
	require.Len(t, errs, 1)
	assert.Equal(t, "x1", errs[0].Attrs[correlation.KeyBehovID])
	assert.Equal(t, "v1", errs[0].Attrs[correlation.KeyVedtaksperiodeID])
	assert.Contains(t, errs[0].Attrs["err"], "personen finnes ikke")
}

func TestHandler_InvertedWindowFails(t *testing.T) {
	f := newFixture(t, dagpengerContractsOnly)

	results := f.dispatch(t, `{"@behov":"Dagpenger","@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-02-01","periodeTom":"2021-01-01"}`)

	require.Len(t, results, 1)
	assert.Equal(t, registry.Failed, results[0].Outcome)
	assert.Zero(t, f.contracts.calls.Load())
}

func TestHandler_SubjectOnlyReachesSecureLog(t *testing.T) {
	f := newFixture(t, dagpengerContractsOnly)

	f.dispatch(t, dagpengerNeed)

	for _, rec := range f.logs.Records() {
		for k, v := range rec.Attrs {
			assert.NotContains(t, v, `"123"`, "attribute %s of %s", k, rec.Message)
			assert.NotEqual(t, "fødselsnummer", k)
		}
	}

	received := f.secure.ByMessage("NEED_RECEIVED")
	require.Len(t, received, 1)
	assert.Equal(t, "123", received[0].Attrs["fødselsnummer"])
	assert.Equal(t, "x1", received[0].Attrs[correlation.KeyBehovID])

	published := f.secure.ByMessage("NEED_PUBLISHED")
	require.Len(t, published, 1)
	assert.Contains(t, published[0].Attrs["packet"], `"@løsning"`)
	assert.Equal(t, "x1", published[0].Attrs[correlation.KeyBehovID])
}

func TestHandler_ConcurrentPacketsKeepTheirOwnCorrelation(t *testing.T) {
	f := newFixture(t, dagpengerContractsOnly)
	f.dispatcher.Start()

	const n = 40
	for i := range n {
		raw := fmt.Sprintf(`{"@behov":"Dagpenger","@id":"id-%d","fødselsnummer":"123","vedtaksperiodeId":"vp-%d","periodeFom":"2021-01-01","periodeTom":"2021-02-%02d"}`, i, i, i%28+1)
		p, err := packet.Parse([]byte(raw))
		require.NoError(t, err)
		require.NoError(t, f.dispatcher.Submit(context.Background(), p, f.pub))
	}
	f.dispatcher.Shutdown()

	received := f.logs.ByMessage("NEED_RECEIVED")
	require.Len(t, received, n)
	for _, rec := range received {
		var i int
		_, err := fmt.Sscanf(rec.Attrs[correlation.KeyBehovID], "id-%d", &i)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("vp-%d", i), rec.Attrs[correlation.KeyVedtaksperiodeID])
		assert.Equal(t, fmt.Sprintf("2021-01-01..2021-02-%02d", i%28+1), rec.Attrs["window"])
	}
	assert.Len(t, f.pub.Published(), n)
}

func TestPlanFor(t *testing.T) {
	plan, err := need.PlanFor(aapBothSources)
	require.NoError(t, err)
	assert.Equal(t, service.Plan{
		Behov: "Arbeidsavklaringspenger", Contracts: true, BenefitType: "Arbeidsavklaringspenger",
		OpenEnded: service.CloseAtToday, Payments: true, Category: "AAP",
	}, plan)

	drop := dagpengerContractsOnly
	drop.OpenEnded = config.OpenEndedDrop
	plan, err = need.PlanFor(drop)
	require.NoError(t, err)
	assert.Equal(t, service.DropOpenEnded, plan.OpenEnded)

	bad := dagpengerContractsOnly
	bad.OpenEnded = "sometimes"
	_, err = need.PlanFor(bad)
	assert.Error(t, err)

	none := dagpengerContractsOnly
	none.Sources = nil
	_, err = need.PlanFor(none)
	assert.ErrorIs(t, err, service.ErrNoSources)
}
