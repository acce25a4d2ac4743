package river_test

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/benefit-solver/internal/domain/packet"
	"github.com/webitel/benefit-solver/internal/domain/river"
)

func needRiver() *river.River {
	return river.NewNeed("Dagpenger",
		river.RequireKey(packet.KeyID, packet.KeySubject, packet.KeyVedtaksID),
		river.RequireDate(packet.KeyWindowStart),
		river.RequireDate(packet.KeyWindowEnd),
	)
}

func parse(t *testing.T, s string) *packet.Packet {
	t.Helper()
	p, err := packet.Parse([]byte(s))
	require.NoError(t, err)
	return p
}

func TestNeedRiver(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		matches bool
	}{
		{
			name:    "valid_need_as_string",
			in:      `{"@behov":"Dagpenger","@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`,
			matches: true,
		},
		{
			name:    "valid_need_in_array",
			in:      `{"@behov":["Sykepengehistorikk","Dagpenger"],"@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`,
			matches: true,
		},
		{
			name:    "null_solution_counts_as_absent",
			in:      `{"@behov":"Dagpenger","@løsning":null,"@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`,
			matches: true,
		},
		{
			name: "other_need",
			in:   `{"@behov":["Arbeidsavklaringspenger"],"@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`,
		},
		{
			name: "already_solved",
			in:   `{"@behov":"Dagpenger","@løsning":{"Dagpenger":[]},"@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`,
		},
		{
			name: "missing_id",
			in:   `{"@behov":"Dagpenger","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`,
		},
		{
			name: "missing_subject",
			in:   `{"@behov":"Dagpenger","@id":"x1","vedtaksperiodeId":"v1","periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`,
		},
		{
			name: "null_vedtaksperiode",
			in:   `{"@behov":"Dagpenger","@id":"x1","fødselsnummer":"123","vedtaksperiodeId":null,"periodeFom":"2021-01-01","periodeTom":"2021-02-01"}`,
		},
		{
			name: "malformed_window_start",
			in:   `{"@behov":"Dagpenger","@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"01.01.2021","periodeTom":"2021-02-01"}`,
		},
		{
			name: "missing_window_end",
			in:   `{"@behov":"Dagpenger","@id":"x1","fødselsnummer":"123","vedtaksperiodeId":"v1","periodeFom":"2021-01-01"}`,
		},
	}

	r := needRiver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, r.Matches(parse(t, tt.in)))
		})
	}
}

func TestRiver_ProblemsNameFailingRules(t *testing.T) {
	p := parse(t, `{"@behov":"Dagpenger","@løsning":{},"@id":"x1"}`)

	problems := needRiver().Problems(p)

	assert.Contains(t, problems, "forbid(@løsning)")
	assert.Contains(t, problems, "requireDate(periodeFom)")
	assert.NotContains(t, problems, "requireContains(@behov,Dagpenger)")
}

func TestRequireValueAndPredicate(t *testing.T) {
	p := parse(t, `{"@event_name":"behov","antall":3}`)

	assert.True(t, river.New(river.RequireValue("@event_name", "behov")).Matches(p))
	assert.False(t, river.New(river.RequireValue("@event_name", "løsning")).Matches(p))

	atLeastTwo := river.Require("antall", func(v jsoniter.Any) bool { return v.ToInt() >= 2 })
	assert.True(t, river.New(atLeastTwo).Matches(p))
	assert.False(t, river.New(river.Require("mangler", func(jsoniter.Any) bool { return true })).Matches(p))
}

func TestRiver_NilPacketNeverMatches(t *testing.T) {
	assert.False(t, needRiver().Matches(nil))
	assert.Equal(t, "Dagpenger", needRiver().Need())
}
