package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ratewatch/ratewatch/internal/cache"
)

// CacheAdmin clears and reports on the response cache.
type CacheAdmin interface {
	ClearAll(ctx context.Context) (int, error)
	GetStats() cache.Stats
}

type CacheHandler struct {
	cache CacheAdmin
}

func NewCacheHandler(cache CacheAdmin) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// ClearCache handles POST /api/v1/cache/clear (admin only). The
// dashboard uses it to force a refetch after upstream corrections.
func (h *CacheHandler) ClearCache(c *gin.Context) {
	if h.cache == nil {
		respondError(c, http.StatusServiceUnavailable, "cache is not configured")
		return
	}
	cleared, err := h.cache.ClearAll(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to clear cache: "+err.Error())
		return
	}
	respondOK(c, gin.H{"cleared": cleared})
}

// GetCacheStats handles GET /api/v1/cache/stats (admin only).
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	if h.cache == nil {
		respondError(c, http.StatusServiceUnavailable, "cache is not configured")
		return
	}
	respondOK(c, h.cache.GetStats())
}
