package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLatestRates struct {
	latest models.LatestRates
	err    error
}

func (s *stubLatestRates) GetLatestRates(ctx context.Context) (models.LatestRates, error) {
	return s.latest, s.err
}

func latestRatesStub() *stubLatestRates {
	return &stubLatestRates{latest: models.LatestRates{
		USRate: decimal.RequireFromString("4.57"),
		KRRate: decimal.RequireFromString("2.86"),
		Spread: decimal.RequireFromString("-171"),
		Date:   "2025-01-27",
	}}
}

func newChatService(ai AIClient) *ChatService {
	return NewChatService(ai, latestRatesStub(), nil, discardLogger(),
		config.GroqConfig{ChatTemp: 0.5})
}

func TestAsk(t *testing.T) {
	ai := &stubAI{reply: "현재 스프레드는 -171bp입니다.", configured: true}
	svc := newChatService(ai)

	resp, err := svc.Ask(context.Background(), "스프레드 알려줘")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "현재 스프레드는 -171bp입니다.", resp.Response)
	assert.False(t, resp.Timestamp.IsZero())

	// latest rates are injected into the system prompt
	require.Len(t, ai.lastMsgs, 2)
	assert.Contains(t, ai.lastMsgs[0].Content, "4.57")
	assert.Contains(t, ai.lastMsgs[0].Content, "-171bp")
	assert.Equal(t, "스프레드 알려줘", ai.lastMsgs[1].Content)
}

func TestAskIncludesHeadlines(t *testing.T) {
	ai := &stubAI{reply: "답변", configured: true}
	news := &stubNews{feed: models.NewsFeed{
		US: []models.NewsItem{{Title: "Treasury yields climb", Source: "Bloomberg"}},
	}}
	svc := NewChatService(ai, latestRatesStub(), news, discardLogger(), config.GroqConfig{})

	_, err := svc.Ask(context.Background(), "미국 금리 뉴스 요약해줘")
	require.NoError(t, err)

	system := ai.lastMsgs[0].Content
	assert.Contains(t, system, "### 미국 금리 관련 뉴스")
	assert.Contains(t, system, "[Bloomberg] Treasury yields climb")
}

func TestAskSkipsHeadlinesOnNewsFailure(t *testing.T) {
	ai := &stubAI{reply: "답변", configured: true}
	news := &stubNews{err: errors.New("feed down")}
	svc := NewChatService(ai, latestRatesStub(), news, discardLogger(), config.GroqConfig{})

	resp, err := svc.Ask(context.Background(), "금리 알려줘")
	require.NoError(t, err)
	assert.Equal(t, "답변", resp.Response)
	assert.NotContains(t, ai.lastMsgs[0].Content, "###")
}

func TestAskTemperatureAndTokens(t *testing.T) {
	ai := &stubAI{reply: "답변", configured: true}
	svc := NewChatService(ai, latestRatesStub(), nil, discardLogger(), config.GroqConfig{})

	_, err := svc.Ask(context.Background(), "금리 알려줘")
	require.NoError(t, err)

	// Chat runs warmer and longer than analysis.
	assert.InDelta(t, 0.5, ai.lastTemp, 1e-9)
	assert.Equal(t, 2000, ai.lastMaxTokens)
}

func TestAskEmptyMessage(t *testing.T) {
	svc := newChatService(&stubAI{configured: true})

	_, err := svc.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestAskMessageTooLong(t *testing.T) {
	svc := newChatService(&stubAI{configured: true})

	_, err := svc.Ask(context.Background(), strings.Repeat("가", models.MaxChatMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)
}

func TestAskAtLengthLimit(t *testing.T) {
	ai := &stubAI{reply: "답변", configured: true}
	svc := newChatService(ai)

	_, err := svc.Ask(context.Background(), strings.Repeat("가", models.MaxChatMessageLength))
	require.NoError(t, err)
}

func TestAskUnconfigured(t *testing.T) {
	svc := newChatService(&stubAI{configured: false})

	_, err := svc.Ask(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestAskAIError(t *testing.T) {
	svc := newChatService(&stubAI{err: errors.New("boom"), configured: true})

	_, err := svc.Ask(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}

func TestAskWithoutRateContext(t *testing.T) {
	ai := &stubAI{reply: "답변입니다", configured: true}
	rates := &stubLatestRates{err: errors.New("providers down")}
	svc := NewChatService(ai, rates, nil, discardLogger(), config.GroqConfig{ChatTemp: 0.5})

	resp, err := svc.Ask(context.Background(), "금리 알려줘")
	require.NoError(t, err)
	assert.Equal(t, "답변입니다", resp.Response)
	assert.NotContains(t, ai.lastMsgs[0].Content, "참고 데이터")
}
