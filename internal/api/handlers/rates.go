package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ratewatch/ratewatch/internal/models"
)

// RatesService is the slice of the rate service the handlers need.
type RatesService interface {
	GetRates(ctx context.Context, days int) ([]models.CombinedRate, error)
	GetLatestRates(ctx context.Context) (models.LatestRates, error)
	ClampDays(days int) int
	DefaultDays() int
}

type RatesHandler struct {
	rates RatesService
}

func NewRatesHandler(rates RatesService) *RatesHandler {
	return &RatesHandler{rates: rates}
}

// RatesResponse is the payload of GET /api/v1/rates.
type RatesResponse struct {
	Days    int                 `json:"days"`
	Count   int                 `json:"count"`
	Records []models.RateRecord `json:"records"`
}

// GetRates handles GET /api/v1/rates?days=N.
func (h *RatesHandler) GetRates(c *gin.Context) {
	days := parseDays(c, h.rates.DefaultDays())
	days = h.rates.ClampDays(days)

	rates, err := h.rates.GetRates(c.Request.Context(), days)
	if err != nil {
		respondError(c, http.StatusBadGateway, "failed to fetch rate data: "+err.Error())
		return
	}

	records := make([]models.RateRecord, len(rates))
	for i, rate := range rates {
		records[i] = rate.Record()
	}

	respondOK(c, RatesResponse{Days: days, Count: len(records), Records: records})
}

// GetLatestRates handles GET /api/v1/rates/latest.
func (h *RatesHandler) GetLatestRates(c *gin.Context) {
	latest, err := h.rates.GetLatestRates(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, "failed to fetch latest rates: "+err.Error())
		return
	}
	respondOK(c, latest)
}

func parseDays(c *gin.Context, fallback int) int {
	raw := c.Query("days")
	if raw == "" {
		return fallback
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return days
}
