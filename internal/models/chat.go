package models

import "time"

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatResponse carries the generated reply.
type ChatResponse struct {
	ID        string    `json:"id"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// MaxChatMessageLength caps user chat input.
const MaxChatMessageLength = 500
