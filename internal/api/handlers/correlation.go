package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ratewatch/ratewatch/internal/correlation"
	"github.com/ratewatch/ratewatch/internal/models"
)

// Window bounds for the ?window= query parameter.
const (
	MinWindow = 2
	MaxWindow = 120
)

type CorrelationHandler struct {
	rates         RatesService
	defaultWindow int
}

func NewCorrelationHandler(rates RatesService, defaultWindow int) *CorrelationHandler {
	if defaultWindow < MinWindow {
		defaultWindow = correlation.DefaultWindow
	}
	return &CorrelationHandler{rates: rates, defaultWindow: defaultWindow}
}

// CorrelationResponse is the payload of GET /api/v1/correlation.
type CorrelationResponse struct {
	Days    int                       `json:"days"`
	Window  int                       `json:"window"`
	Chart   *correlation.ChartBinding `json:"chart"`
	Summary correlation.RegimeSummary `json:"summary"`
}

// GetCorrelation handles GET /api/v1/correlation?days=N&window=W.
func (h *CorrelationHandler) GetCorrelation(c *gin.Context) {
	days := h.rates.ClampDays(parseDays(c, h.rates.DefaultDays()))
	window := clampWindow(parseWindow(c, h.defaultWindow))

	rates, err := h.rates.GetRates(c.Request.Context(), days)
	if err != nil {
		respondError(c, http.StatusBadGateway, "failed to fetch rate data: "+err.Error())
		return
	}

	points := correlation.RollingCorrelation(toObservations(rates), window)
	binding, err := correlation.BindSeries(points)
	if err != nil {
		if errors.Is(err, correlation.ErrNoData) {
			respondError(c, http.StatusNotFound, "insufficient data for correlation")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	respondOK(c, CorrelationResponse{
		Days:    days,
		Window:  window,
		Chart:   binding,
		Summary: binding.Summary,
	})
}

func parseWindow(c *gin.Context, fallback int) int {
	raw := c.Query("window")
	if raw == "" {
		return fallback
	}
	window, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return window
}

func clampWindow(window int) int {
	if window < MinWindow {
		return MinWindow
	}
	if window > MaxWindow {
		return MaxWindow
	}
	return window
}

func toObservations(rates []models.CombinedRate) []correlation.Observation {
	observations := make([]correlation.Observation, len(rates))
	for i, rate := range rates {
		us, _ := rate.USRate.Float64()
		kr, _ := rate.KRRate.Float64()
		observations[i] = correlation.Observation{
			Date:      rate.Date,
			Primary:   us,
			Secondary: kr,
		}
	}
	return observations
}
