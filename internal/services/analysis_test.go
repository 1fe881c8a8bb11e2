package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/correlation"
	"github.com/ratewatch/ratewatch/internal/groq"
	"github.com/ratewatch/ratewatch/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAI struct {
	reply         string
	err           error
	configured    bool
	calls         int
	lastMsgs      []groq.Message
	lastTemp      float64
	lastMaxTokens int
}

func (a *stubAI) ChatCompletion(ctx context.Context, messages []groq.Message, temperature float64, maxTokens int) (string, error) {
	a.calls++
	a.lastMsgs = messages
	a.lastTemp = temperature
	a.lastMaxTokens = maxTokens
	return a.reply, a.err
}

func (a *stubAI) Configured() bool { return a.configured }

type stubNews struct {
	feed models.NewsFeed
	err  error
}

func (s *stubNews) GetNews(ctx context.Context, country string, limit int) (models.NewsFeed, error) {
	return s.feed, s.err
}

func combinedRates(n int) []models.CombinedRate {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rates := make([]models.CombinedRate, n)
	for i := range rates {
		rates[i] = models.CombinedRate{
			Date:   base.AddDate(0, 0, i),
			USRate: decimal.RequireFromString("4.50"),
			KRRate: decimal.RequireFromString("2.80"),
			Spread: decimal.RequireFromString("-170"),
		}
	}
	return rates
}

func weakSummary() correlation.RegimeSummary {
	return correlation.RegimeSummary{
		Date:        "2025-01-30",
		Correlation: 0.45,
		Regime:      correlation.RegimeWeak.String(),
		Label:       correlation.RegimeWeak.Label(),
		Color:       correlation.RegimeWeak.Color(),
	}
}

func newAnalysisService(ai AIClient, cache PayloadCache) *AnalysisService {
	return NewAnalysisService(ai, nil, cache, discardLogger(),
		config.RateDataConfig{AnalysisTTL: "6h"},
		config.GroqConfig{AnalysisTemp: 0.3})
}

func TestAnalyzeUsesAIReply(t *testing.T) {
	reply := strings.Repeat("한미 금리 동조화가 약화되는 구간입니다. ", 4)
	ai := &stubAI{reply: strings.TrimSpace(reply), configured: true}

	svc := newAnalysisService(ai, nil)
	analysis, err := svc.Analyze(context.Background(), combinedRates(30), weakSummary())
	require.NoError(t, err)

	assert.Equal(t, models.AnalysisSourceAI, analysis.Source)
	assert.Equal(t, ai.reply, analysis.Text)
	require.Len(t, ai.lastMsgs, 2)
	assert.Contains(t, ai.lastMsgs[1].Content, "0.450")
	assert.Contains(t, ai.lastMsgs[1].Content, "약한 동조화")
}

func TestAnalyzePromptIncludesHeadlines(t *testing.T) {
	reply := strings.Repeat("한미 금리 동조화가 약화되는 구간입니다. ", 4)
	ai := &stubAI{reply: strings.TrimSpace(reply), configured: true}
	news := &stubNews{feed: models.NewsFeed{
		US: []models.NewsItem{{Title: "Fed holds rates steady", Source: "Reuters"}},
		KR: []models.NewsItem{{Title: "국고채 금리 상승", Source: "연합뉴스"}},
	}}

	svc := NewAnalysisService(ai, news, nil, discardLogger(),
		config.RateDataConfig{AnalysisTTL: "6h"}, config.GroqConfig{})
	_, err := svc.Analyze(context.Background(), combinedRates(30), weakSummary())
	require.NoError(t, err)

	prompt := ai.lastMsgs[1].Content
	assert.Contains(t, prompt, "### 미국 금리 관련 뉴스")
	assert.Contains(t, prompt, "[Reuters] Fed holds rates steady")
	assert.Contains(t, prompt, "### 한국 금리 관련 뉴스")
	assert.Contains(t, prompt, "[연합뉴스] 국고채 금리 상승")
}

func TestAnalyzeSkipsHeadlinesOnNewsFailure(t *testing.T) {
	reply := strings.Repeat("한미 금리 동조화가 약화되는 구간입니다. ", 4)
	ai := &stubAI{reply: strings.TrimSpace(reply), configured: true}
	news := &stubNews{err: errors.New("feed down")}

	svc := NewAnalysisService(ai, news, nil, discardLogger(),
		config.RateDataConfig{AnalysisTTL: "6h"}, config.GroqConfig{})
	analysis, err := svc.Analyze(context.Background(), combinedRates(30), weakSummary())
	require.NoError(t, err)

	assert.Equal(t, models.AnalysisSourceAI, analysis.Source)
	assert.NotContains(t, ai.lastMsgs[1].Content, "###")
}

func TestAnalyzeTemperatureAndTokens(t *testing.T) {
	reply := strings.Repeat("한미 금리 동조화가 약화되는 구간입니다. ", 4)
	ai := &stubAI{reply: strings.TrimSpace(reply), configured: true}

	// Zero config falls back to the analysis defaults, not the chat knobs.
	svc := NewAnalysisService(ai, nil, nil, discardLogger(),
		config.RateDataConfig{}, config.GroqConfig{ChatTemp: 0.9})
	_, err := svc.Analyze(context.Background(), combinedRates(30), weakSummary())
	require.NoError(t, err)

	assert.InDelta(t, 0.3, ai.lastTemp, 1e-9)
	assert.Equal(t, 500, ai.lastMaxTokens)
}

func TestAnalyzeFallbackWhenAIFails(t *testing.T) {
	ai := &stubAI{err: errors.New("rate limited"), configured: true}

	svc := newAnalysisService(ai, nil)
	analysis, err := svc.Analyze(context.Background(), combinedRates(30), weakSummary())
	require.NoError(t, err)

	assert.Equal(t, models.AnalysisSourceFallback, analysis.Source)
	assert.Contains(t, analysis.Text, "약한 동조화")
}

func TestAnalyzeFallbackWhenReplyTooShort(t *testing.T) {
	ai := &stubAI{reply: "짧음", configured: true}

	svc := newAnalysisService(ai, nil)
	analysis, err := svc.Analyze(context.Background(), combinedRates(30), weakSummary())
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisSourceFallback, analysis.Source)
}

func TestAnalyzeFallbackWhenReplyTooLong(t *testing.T) {
	ai := &stubAI{reply: strings.Repeat("가", 800), configured: true}

	svc := newAnalysisService(ai, nil)
	analysis, err := svc.Analyze(context.Background(), combinedRates(30), weakSummary())
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisSourceFallback, analysis.Source)
}

func TestAnalyzeFallbackWhenUnconfigured(t *testing.T) {
	ai := &stubAI{configured: false}

	svc := newAnalysisService(ai, nil)
	analysis, err := svc.Analyze(context.Background(), combinedRates(30), weakSummary())
	require.NoError(t, err)

	assert.Equal(t, models.AnalysisSourceFallback, analysis.Source)
	assert.Zero(t, ai.calls)
}

func TestAnalyzeNoData(t *testing.T) {
	svc := newAnalysisService(&stubAI{configured: true}, nil)
	_, err := svc.Analyze(context.Background(), nil, weakSummary())
	require.Error(t, err)
}

func TestSpreadTrendDirections(t *testing.T) {
	widening := combinedRates(30)
	for i := 20; i < 30; i++ {
		widening[i].Spread = decimal.NewFromInt(int64(-170 + (i-19)*5))
	}
	assert.Equal(t, trendWidening, spreadTrend(widening))

	narrowing := combinedRates(30)
	for i := 20; i < 30; i++ {
		narrowing[i].Spread = decimal.NewFromInt(int64(-170 - (i-19)*5))
	}
	assert.Equal(t, trendNarrowing, spreadTrend(narrowing))

	assert.Equal(t, trendFlat, spreadTrend(combinedRates(10)), "short series has no trend")
}
