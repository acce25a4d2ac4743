/*
Package soap is a minimal SOAP 1.1 client for the Arena web services.

Each call is a single POST of an envelope carrying a WS-Security UsernameToken
for the service user. Faults are returned as errors wrapping ErrFault.
*/
package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const (
	nsEnvelope = "http://schemas.xmlsoap.org/soap/envelope/"
	nsWSSE     = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	// UsernameToken password type for a plain text password.
	passwordText = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordText"

	maxResponseSize = 16 << 20
)

var ErrFault = errors.New("soap: fault")

// Credentials of the service user.
type Credentials struct {
	Username string
	Password string
}

// ReadCredentials reads the username and password files mounted for the service user.
func ReadCredentials(usernamePath, passwordPath string) (Credentials, error) {
	username, err := os.ReadFile(usernamePath)
	if err != nil {
		return Credentials{}, fmt.Errorf("soap: read username: %w", err)
	}
	password, err := os.ReadFile(passwordPath)
	if err != nil {
		return Credentials{}, fmt.Errorf("soap: read password: %w", err)
	}
	return Credentials{
		Username: strings.TrimSpace(string(username)),
		Password: strings.TrimSpace(string(password)),
	}, nil
}

// Fault is a SOAP 1.1 fault.
type Fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrFault, f.Code, f.String)
}

func (f *Fault) Unwrap() error { return ErrFault }

type Client struct {
	url   string
	creds Credentials
	http  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func New(url string, creds Credentials, opts ...Option) *Client {
	c := &Client{url: url, creds: creds, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	NS      string   `xml:"xmlns:soapenv,attr"`
	Header  struct {
		Security security `xml:"wsse:Security"`
	} `xml:"soapenv:Header"`
	Body struct {
		Content any
	} `xml:"soapenv:Body"`
}

type security struct {
	NS             string `xml:"xmlns:wsse,attr"`
	MustUnderstand string `xml:"soapenv:mustUnderstand,attr"`
	UsernameToken  struct {
		Username string `xml:"wsse:Username"`
		Password struct {
			Type  string `xml:"Type,attr"`
			Value string `xml:",chardata"`
		} `xml:"wsse:Password"`
	} `xml:"wsse:UsernameToken"`
}

type responseEnvelope struct {
	Body struct {
		Fault   *Fault `xml:"Fault"`
		Content []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// Call sends in as the body of a request for action and decodes the response body into out.
func (c *Client) Call(ctx context.Context, action string, in, out any) error {
	env := requestEnvelope{NS: nsEnvelope}
	env.Header.Security.NS = nsWSSE
	env.Header.Security.MustUnderstand = "1"
	env.Header.Security.UsernameToken.Username = c.creds.Username
	env.Header.Security.UsernameToken.Password.Type = passwordText
	env.Header.Security.UsernameToken.Password.Value = c.creds.Password
	env.Body.Content = in

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("soap: encode %s: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return fmt.Errorf("soap: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+action+`"`)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("soap: %s: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("soap: read response: %w", err)
	}

	var renv responseEnvelope
	if err := xml.Unmarshal(raw, &renv); err != nil {
		if resp.StatusCode >= 300 {
			return fmt.Errorf("soap: %s: unexpected status %d", action, resp.StatusCode)
		}
		return fmt.Errorf("soap: decode response: %w", err)
	}
	// Servers answer faults with 500, so the fault is checked before the status.
	if renv.Body.Fault != nil {
		return renv.Body.Fault
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("soap: %s: unexpected status %d", action, resp.StatusCode)
	}

	if err := xml.Unmarshal(renv.Body.Content, out); err != nil {
		return fmt.Errorf("soap: decode %s response: %w", action, err)
	}
	return nil
}
