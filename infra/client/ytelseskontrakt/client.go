// Package ytelseskontrakt reads benefit contracts from Arena's Ytelseskontrakt_v3 service.
package ytelseskontrakt

import (
	"context"
	"encoding/xml"

	"github.com/sony/gobreaker"

	"github.com/webitel/benefit-solver/infra/client/breaker"
	"github.com/webitel/benefit-solver/infra/client/soap"
	"github.com/webitel/benefit-solver/internal/domain/model"
)

const (
	Namespace = "http://nav.no/tjeneste/virksomhet/ytelseskontrakt/v3"
	Action    = Namespace + "/Ytelseskontrakt_v3/hentYtelseskontraktListeRequest"
)

type hentRequest struct {
	XMLName xml.Name `xml:"ns:hentYtelseskontraktListe"`
	NS      string   `xml:"xmlns:ns,attr"`
	Request struct {
		Personidentifikator string `xml:"personidentifikator"`
		Periode             struct {
			Fom soap.Date `xml:"fom"`
			Tom soap.Date `xml:"tom"`
		} `xml:"periode"`
	} `xml:"request"`
}

type hentResponse struct {
	Response struct {
		Kontrakter []struct {
			Ytelsestype string `xml:"ytelsestype"`
			IhtVedtak   []struct {
				PeriodetypeForYtelse string `xml:"periodetypeForYtelse"`
				Vedtaksperiode       struct {
					Fom *soap.Date `xml:"fom"`
					Tom *soap.Date `xml:"tom"`
				} `xml:"vedtaksperiode"`
			} `xml:"ihtVedtak"`
		} `xml:"ytelseskontraktListe"`
	} `xml:"response"`
}

type Client struct {
	soap *soap.Client
	cb   *gobreaker.CircuitBreaker
}

func New(soapClient *soap.Client, cb *gobreaker.CircuitBreaker) *Client {
	return &Client{soap: soapClient, cb: cb}
}

// LookupBenefitPeriods returns every contract of the person with decisions overlapping w.
func (c *Client) LookupBenefitPeriods(ctx context.Context, subjectID string, w model.Window) ([]model.ContractRecord, error) {
	req := hentRequest{NS: Namespace}
	req.Request.Personidentifikator = subjectID
	req.Request.Periode.Fom = soap.NewDate(w.Fom)
	req.Request.Periode.Tom = soap.NewDate(w.Tom)

	resp, err := breaker.Do(c.cb, func() (*hentResponse, error) {
		var resp hentResponse
		if err := c.soap.Call(ctx, Action, req, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]model.ContractRecord, 0, len(resp.Response.Kontrakter))
	for _, k := range resp.Response.Kontrakter {
		rec := model.ContractRecord{BenefitType: k.Ytelsestype}
		for _, v := range k.IhtVedtak {
			rec.Decisions = append(rec.Decisions, model.ContractDecision{
				PeriodType: v.PeriodetypeForYtelse,
				Fom:        v.Vedtaksperiode.Fom.Ptr(),
				Tom:        v.Vedtaksperiode.Tom.Ptr(),
			})
		}
		records = append(records, rec)
	}
	return records, nil
}
