package models

import "time"

// Analysis sources
const (
	AnalysisSourceAI       = "ai"
	AnalysisSourceFallback = "fallback"
)

// Analysis is the market commentary payload.
type Analysis struct {
	Text        string    `json:"analysis"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
}
