package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for observation dates.
const DateLayout = "2006-01-02"

// RateObservation is a single-provider yield observation before merging.
type RateObservation struct {
	Date time.Time       `json:"date"`
	Rate decimal.Decimal `json:"rate"`
}

// CombinedRate is one merged row of the US/KR yield series. Spread is
// KR minus US in basis points.
type CombinedRate struct {
	Date   time.Time       `json:"date" db:"observed_on"`
	USRate decimal.Decimal `json:"us_rate" db:"us_rate"`
	KRRate decimal.Decimal `json:"kr_rate" db:"kr_rate"`
	Spread decimal.Decimal `json:"spread" db:"spread"`
}

// LatestRates is the most recent combined row plus its date, used by the
// dashboard header and as chat context.
type LatestRates struct {
	USRate decimal.Decimal `json:"us_rate"`
	KRRate decimal.Decimal `json:"kr_rate"`
	Spread decimal.Decimal `json:"spread"`
	Date   string          `json:"date"`
}

// RateRecord is the JSON row shape served by the rates endpoints, with the
// date already formatted and values rounded for display.
type RateRecord struct {
	Date   string          `json:"date"`
	USRate decimal.Decimal `json:"us_rate"`
	KRRate decimal.Decimal `json:"kr_rate"`
	Spread decimal.Decimal `json:"spread"`
}

// Record converts a combined row to its wire form: rates rounded to three
// decimal places, spread to one.
func (c CombinedRate) Record() RateRecord {
	return RateRecord{
		Date:   c.Date.Format(DateLayout),
		USRate: c.USRate.Round(3),
		KRRate: c.KRRate.Round(3),
		Spread: c.Spread.Round(1),
	}
}
