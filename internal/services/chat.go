package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/groq"
	"github.com/ratewatch/ratewatch/internal/models"
)

// ErrMessageTooLong is returned when a chat message exceeds the limit.
var ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", models.MaxChatMessageLength)

// ErrEmptyMessage is returned for blank chat messages.
var ErrEmptyMessage = fmt.Errorf("message is empty")

const defaultChatMaxTokens = 2000

// latestRatesProvider supplies current rates as chat context.
type latestRatesProvider interface {
	GetLatestRates(ctx context.Context) (models.LatestRates, error)
}

// ChatService answers dashboard questions about the rate data through
// the AI client, grounding each reply in the latest merged rates and
// recent headlines.
type ChatService struct {
	ai          AIClient
	rates       latestRatesProvider
	news        headlineSource
	logger      *slog.Logger
	temperature float64
	maxTokens   int
}

func NewChatService(ai AIClient, rates latestRatesProvider, news headlineSource, logger *slog.Logger, groqCfg config.GroqConfig) *ChatService {
	temperature := groqCfg.ChatTemp
	if temperature <= 0 {
		temperature = 0.5
	}
	maxTokens := groqCfg.ChatMaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultChatMaxTokens
	}
	return &ChatService{
		ai:          ai,
		rates:       rates,
		news:        news,
		logger:      logger,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Ask validates and answers a single chat message.
func (s *ChatService) Ask(ctx context.Context, message string) (models.ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.ChatResponse{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > models.MaxChatMessageLength {
		return models.ChatResponse{}, ErrMessageTooLong
	}
	if s.ai == nil || !s.ai.Configured() {
		return models.ChatResponse{}, fmt.Errorf("chat is not available: AI client is not configured")
	}

	reply, err := s.ai.ChatCompletion(ctx, []groq.Message{
		{Role: "system", Content: s.systemPrompt(ctx)},
		{Role: "user", Content: message},
	}, s.temperature, s.maxTokens)
	if err != nil {
		return models.ChatResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}

	return models.ChatResponse{
		ID:        uuid.New().String(),
		Response:  reply,
		Timestamp: time.Now().UTC(),
	}, nil
}

// systemPrompt carries the latest rates and recent headlines; either
// block is skipped when its source is unavailable.
func (s *ChatService) systemPrompt(ctx context.Context) string {
	prompt := "당신은 한미 국채 금리 대시보드의 분석 도우미입니다. 금리, 스프레드, 동조화에 관한 질문에 한국어로 간결하게 답하세요."

	if latest, err := s.rates.GetLatestRates(ctx); err == nil {
		prompt += fmt.Sprintf(
			" 참고 데이터(%s 기준): 미국 10년물 %s%%, 한국 10년물 %s%%, 스프레드 %sbp.",
			latest.Date, latest.USRate, latest.KRRate, latest.Spread)
	} else {
		s.logger.Warn("chat context unavailable", "error", err)
	}

	if s.news != nil {
		if feed, err := s.news.GetNews(ctx, "all", promptHeadlines); err == nil {
			if headlineBlock := newsContext(feed); headlineBlock != "" {
				prompt += "\n\n" + headlineBlock
			}
		} else {
			s.logger.Warn("chat news context unavailable", "error", err)
		}
	}

	return prompt
}
