package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ratewatch/ratewatch/internal/correlation"
	"github.com/ratewatch/ratewatch/internal/models"
)

// Analyzer produces market commentary for a series and regime.
type Analyzer interface {
	Analyze(ctx context.Context, rates []models.CombinedRate, summary correlation.RegimeSummary) (models.Analysis, error)
}

type AnalysisHandler struct {
	rates    RatesService
	analyzer Analyzer
	window   int
}

func NewAnalysisHandler(rates RatesService, analyzer Analyzer, window int) *AnalysisHandler {
	if window < MinWindow {
		window = correlation.DefaultWindow
	}
	return &AnalysisHandler{rates: rates, analyzer: analyzer, window: window}
}

// GetAnalysis handles GET /api/v1/analysis.
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	rates, err := h.rates.GetRates(c.Request.Context(), h.rates.DefaultDays())
	if err != nil {
		respondError(c, http.StatusBadGateway, "failed to fetch rate data: "+err.Error())
		return
	}

	points := correlation.RollingCorrelation(toObservations(rates), h.window)
	binding, err := correlation.BindSeries(points)
	if err != nil {
		if errors.Is(err, correlation.ErrNoData) {
			respondError(c, http.StatusNotFound, "insufficient data for correlation")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	analysis, err := h.analyzer.Analyze(c.Request.Context(), rates, binding.Summary)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to generate analysis: "+err.Error())
		return
	}

	respondOK(c, analysis)
}
