// Package meldekort reads the payment roster from Arena's MeldekortUtbetalingsgrunnlag_v1 service.
package meldekort

import (
	"context"
	"encoding/xml"

	"github.com/sony/gobreaker"

	"github.com/webitel/benefit-solver/infra/client/breaker"
	"github.com/webitel/benefit-solver/infra/client/soap"
	"github.com/webitel/benefit-solver/internal/domain/model"
)

const (
	Namespace = "http://nav.no/tjeneste/virksomhet/meldekortUtbetalingsgrunnlag/v1"
	Action    = Namespace + "/MeldekortUtbetalingsgrunnlag_v1/finnMeldekortUtbetalingsgrunnlagListeRequest"
)

type finnRequest struct {
	XMLName xml.Name `xml:"ns:finnMeldekortUtbetalingsgrunnlagListe"`
	NS      string   `xml:"xmlns:ns,attr"`
	Request struct {
		Ident struct {
			Ident string `xml:"ident"`
		} `xml:"ident"`
		Periode struct {
			Fom soap.Date `xml:"fom"`
			Tom soap.Date `xml:"tom"`
		} `xml:"periode"`
		TemaListe []string `xml:"temaListe"`
	} `xml:"request"`
}

type periode struct {
	Fom *soap.Date `xml:"fom"`
	Tom *soap.Date `xml:"tom"`
}

type finnResponse struct {
	Response struct {
		Grunnlag []struct {
			Vedtak []struct {
				Meldekort []struct {
					Periode         periode `xml:"meldekortperiode"`
					Dagsats         float64 `xml:"dagsats"`
					Beloep          float64 `xml:"beloep"`
					Utbetalingsgrad float64 `xml:"utbetalingsgrad"`
				} `xml:"meldekortListe"`
			} `xml:"vedtakListe"`
		} `xml:"meldekortUtbetalingsgrunnlagListe"`
	} `xml:"response"`
}

type Client struct {
	soap *soap.Client
	cb   *gobreaker.CircuitBreaker
}

func New(soapClient *soap.Client, cb *gobreaker.CircuitBreaker) *Client {
	return &Client{soap: soapClient, cb: cb}
}

// LookupPaymentRoster returns the payment decisions for tema category within w.
func (c *Client) LookupPaymentRoster(ctx context.Context, subjectID string, w model.Window, category string) ([]model.PaymentDecision, error) {
	req := finnRequest{NS: Namespace}
	req.Request.Ident.Ident = subjectID
	req.Request.Periode.Fom = soap.NewDate(w.Fom)
	req.Request.Periode.Tom = soap.NewDate(w.Tom)
	req.Request.TemaListe = []string{category}

	resp, err := breaker.Do(c.cb, func() (*finnResponse, error) {
		var resp finnResponse
		if err := c.soap.Call(ctx, Action, req, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}

	var decisions []model.PaymentDecision
	for _, g := range resp.Response.Grunnlag {
		for _, v := range g.Vedtak {
			dec := model.PaymentDecision{}
			for _, m := range v.Meldekort {
				dec.Lines = append(dec.Lines, model.PaymentLine{
					Fom:              m.Periode.Fom.Ptr(),
					Tom:              m.Periode.Tom.Ptr(),
					DailyRate:        m.Dagsats,
					Amount:           m.Beloep,
					PayoutPercentage: m.Utbetalingsgrad,
				})
			}
			decisions = append(decisions, dec)
		}
	}
	return decisions, nil
}
