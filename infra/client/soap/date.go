package soap

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// xsd:date and xsd:dateTime values as Arena sends them, with or without a zone.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02Z07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

// Date is a calendar date read from an XML element. An empty or nil element leaves it zero.
type Date struct {
	time.Time
}

// NewDate formats t for a request.
func NewDate(t time.Time) Date { return Date{Time: t} }

func (d Date) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(d.Format(DateLayout), start)
}

func (d *Date) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := dec.DecodeElement(&s, &start); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, day := t.Date()
			d.Time = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
			return nil
		}
	}
	return fmt.Errorf("soap: unparseable date %q", s)
}

// Ptr returns the date, or nil when the element was absent or empty.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
