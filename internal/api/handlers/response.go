// Package handlers implements the HTTP handlers behind the REST API.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every endpoint returns.
type APIResponse struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Status:    "success",
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

func respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Error:     message,
	})
}
