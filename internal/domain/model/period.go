package model

import (
	"encoding/json"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar date that travels as YYYY-MM-DD.
type Date time.Time

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func (d Date) Time() time.Time { return time.Time(d) }

func (d Date) String() string { return time.Time(d).Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return err
	}
	*d = Date(t)
	return nil
}

// Period is one shaped decision period from the contract source.
type Period struct {
	Fom Date `json:"fom"`
	Tom Date `json:"tom"`
}

// PaymentPeriod is one shaped payment line from the payment-roster source.
type PaymentPeriod struct {
	Fom              Date    `json:"fom"`
	Tom              Date    `json:"tom"`
	DailyRate        float64 `json:"dagsats"`
	Amount           float64 `json:"beløp"`
	PayoutPercentage float64 `json:"utbetalingsgrad"`
}
