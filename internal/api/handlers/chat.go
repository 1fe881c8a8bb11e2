package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ratewatch/ratewatch/internal/models"
	"github.com/ratewatch/ratewatch/internal/services"
)

// ChatAssistant answers a single dashboard question.
type ChatAssistant interface {
	Ask(ctx context.Context, message string) (models.ChatResponse, error)
}

type ChatHandler struct {
	chat ChatAssistant
}

func NewChatHandler(chat ChatAssistant) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// PostChat handles POST /api/v1/chat.
func (h *ChatHandler) PostChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := h.chat.Ask(c.Request.Context(), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrMessageTooLong):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "chat failed: "+err.Error())
		}
		return
	}

	respondOK(c, resp)
}
