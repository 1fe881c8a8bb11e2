package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ratewatch/ratewatch/internal/models"
	"github.com/ratewatch/ratewatch/internal/services"
)

const defaultNewsLimit = 5

// NewsProvider fetches headlines per country.
type NewsProvider interface {
	GetNews(ctx context.Context, country string, limit int) (models.NewsFeed, error)
}

type NewsHandler struct {
	news NewsProvider
}

func NewNewsHandler(news NewsProvider) *NewsHandler {
	return &NewsHandler{news: news}
}

// GetNews handles GET /api/v1/news?country=us|kr|all&limit=N.
func (h *NewsHandler) GetNews(c *gin.Context) {
	country := c.DefaultQuery("country", "all")
	if country != "us" && country != "kr" && country != "all" {
		respondError(c, http.StatusBadRequest, "country must be one of us, kr, all")
		return
	}

	limit := defaultNewsLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	limit = services.ClampLimit(limit)

	feed, err := h.news.GetNews(c.Request.Context(), country, limit)
	if err != nil {
		respondError(c, http.StatusBadGateway, "failed to fetch news: "+err.Error())
		return
	}

	respondOK(c, feed)
}
