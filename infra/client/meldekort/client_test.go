package meldekort_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/benefit-solver/config"
	"github.com/webitel/benefit-solver/infra/client/breaker"
	"github.com/webitel/benefit-solver/infra/client/meldekort"
	"github.com/webitel/benefit-solver/infra/client/soap"
	"github.com/webitel/benefit-solver/internal/domain/model"
)

const response = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
<soap:Body>
<ns2:finnMeldekortUtbetalingsgrunnlagListeResponse xmlns:ns2="http://nav.no/tjeneste/virksomhet/meldekortUtbetalingsgrunnlag/v1">
  <response>
    <meldekortUtbetalingsgrunnlagListe>
      <vedtakListe>
        <meldekortListe>
          <meldekortperiode><fom>2021-01-04</fom><tom>2021-01-17</tom></meldekortperiode>
          <dagsats>870.0</dagsats><beloep>8700.0</beloep><utbetalingsgrad>100.0</utbetalingsgrad>
        </meldekortListe>
        <meldekortListe>
          <meldekortperiode><fom>2021-01-18</fom><tom>2021-01-31</tom></meldekortperiode>
          <dagsats>870.0</dagsats><beloep>4350.0</beloep><utbetalingsgrad>50.0</utbetalingsgrad>
        </meldekortListe>
      </vedtakListe>
      <vedtakListe>
        <meldekortListe>
          <meldekortperiode><fom>2021-02-01</fom><tom>2021-02-14</tom></meldekortperiode>
          <dagsats>900.0</dagsats><beloep>9000.0</beloep><utbetalingsgrad>100.0</utbetalingsgrad>
        </meldekortListe>
      </vedtakListe>
    </meldekortUtbetalingsgrunnlagListe>
  </response>
</ns2:finnMeldekortUtbetalingsgrunnlagListeResponse>
</soap:Body>
</soap:Envelope>`

func date(s string) *time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestClient_LookupPaymentRoster(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = io.WriteString(w, response)
	}))
	defer srv.Close()

	c := meldekort.New(
		soap.New(srv.URL, soap.Credentials{}),
		breaker.New(config.SourceMeldekort, config.BreakerConfig{}, slog.New(slog.DiscardHandler)),
	)
	w, err := model.NewWindow(*date("2021-01-01"), *date("2021-03-01"))
	require.NoError(t, err)

	decisions, err := c.LookupPaymentRoster(context.Background(), "12345678910", w, "AAP")
	require.NoError(t, err)

	assert.Contains(t, body, "<ident><ident>12345678910</ident></ident>")
	assert.Contains(t, body, "<temaListe>AAP</temaListe>")
	assert.Contains(t, body, "<periode><fom>2021-01-01</fom><tom>2021-03-01</tom></periode>")

	assert.Equal(t, []model.PaymentDecision{
		{Lines: []model.PaymentLine{
			{Fom: date("2021-01-04"), Tom: date("2021-01-17"), DailyRate: 870, Amount: 8700, PayoutPercentage: 100},
			{Fom: date("2021-01-18"), Tom: date("2021-01-31"), DailyRate: 870, Amount: 4350, PayoutPercentage: 50},
		}},
		{Lines: []model.PaymentLine{
			{Fom: date("2021-02-01"), Tom: date("2021-02-14"), DailyRate: 900, Amount: 9000, PayoutPercentage: 100},
		}},
	}, decisions)
}
