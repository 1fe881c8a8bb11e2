package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ratewatch/ratewatch/internal/models"
)

// ForecastSource serves the batch-produced forecast.
type ForecastSource interface {
	GetForecast() (*models.Forecast, error)
}

type ForecastHandler struct {
	forecast ForecastSource
}

func NewForecastHandler(forecast ForecastSource) *ForecastHandler {
	return &ForecastHandler{forecast: forecast}
}

// GetForecast handles GET /api/v1/forecast.
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	forecast, err := h.forecast.GetForecast()
	if err != nil {
		respondError(c, http.StatusNotFound, "forecast unavailable: "+err.Error())
		return
	}
	respondOK(c, forecast)
}
