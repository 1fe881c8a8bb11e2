package models

import "github.com/shopspring/decimal"

// ForecastPoint is one projected daily row.
type ForecastPoint struct {
	Date   string          `json:"date"`
	USRate decimal.Decimal `json:"us_rate"`
	KRRate decimal.Decimal `json:"kr_rate"`
	Spread decimal.Decimal `json:"spread"`
}

// Forecast is the offline model output served as-is by the API. The
// file is produced by a separate batch job.
type Forecast struct {
	GeneratedAt string          `json:"generated_at"`
	Model       string          `json:"model"`
	Points      []ForecastPoint `json:"points"`
}
