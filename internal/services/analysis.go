package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/correlation"
	"github.com/ratewatch/ratewatch/internal/groq"
	"github.com/ratewatch/ratewatch/internal/models"
)

const analysisCacheKey = "analysis"

// Replies outside this range are reasoning-model artifacts (truncated
// or runaway output) and get replaced with the deterministic fallback.
const (
	minAnalysisRunes = 50
	maxAnalysisRunes = 700
)

const (
	smaShortPeriod = 5
	smaLongPeriod  = 20
)

// promptHeadlines caps the headlines per country fed into a prompt.
const promptHeadlines = 5

const defaultAnalysisMaxTokens = 500

// AIClient generates chat completions.
type AIClient interface {
	ChatCompletion(ctx context.Context, messages []groq.Message, temperature float64, maxTokens int) (string, error)
	Configured() bool
}

// headlineSource supplies recent headlines as prompt context.
type headlineSource interface {
	GetNews(ctx context.Context, country string, limit int) (models.NewsFeed, error)
}

// AnalysisService produces the Korean-language market commentary shown
// on the dashboard, backed by Groq with a deterministic fallback.
type AnalysisService struct {
	ai          AIClient
	news        headlineSource
	cache       PayloadCache
	logger      *slog.Logger
	ttl         time.Duration
	temperature float64
	maxTokens   int
}

func NewAnalysisService(ai AIClient, news headlineSource, cache PayloadCache, logger *slog.Logger, rateCfg config.RateDataConfig, groqCfg config.GroqConfig) *AnalysisService {
	ttl, err := time.ParseDuration(rateCfg.AnalysisTTL)
	if err != nil || ttl <= 0 {
		ttl = 6 * time.Hour
	}
	temperature := groqCfg.AnalysisTemp
	if temperature <= 0 {
		temperature = 0.3
	}
	maxTokens := groqCfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnalysisMaxTokens
	}
	return &AnalysisService{
		ai:          ai,
		news:        news,
		cache:       cache,
		logger:      logger,
		ttl:         ttl,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Analyze returns commentary for the current series and regime. AI
// replies are cached; implausible replies fall back to a template
// built from the regime and the spread trend.
func (s *AnalysisService) Analyze(ctx context.Context, rates []models.CombinedRate, summary correlation.RegimeSummary) (models.Analysis, error) {
	if len(rates) == 0 {
		return models.Analysis{}, fmt.Errorf("no rate data to analyze")
	}

	var cached models.Analysis
	if s.cache != nil && s.cache.Get(ctx, analysisCacheKey, &cached) {
		return cached, nil
	}

	analysis := s.generate(ctx, rates, summary)
	if s.cache != nil {
		s.cache.Set(ctx, analysisCacheKey, analysis, s.ttl)
	}
	return analysis, nil
}

func (s *AnalysisService) generate(ctx context.Context, rates []models.CombinedRate, summary correlation.RegimeSummary) models.Analysis {
	if s.ai == nil || !s.ai.Configured() {
		return s.fallback(rates, summary)
	}

	reply, err := s.ai.ChatCompletion(ctx, []groq.Message{
		{Role: "system", Content: "당신은 한국과 미국의 채권 시장을 분석하는 전문 애널리스트입니다. 핵심만 간결하게, 3~4문장의 한국어로 답하세요."},
		{Role: "user", Content: buildAnalysisPrompt(rates, summary, s.headlines(ctx))},
	}, s.temperature, s.maxTokens)
	if err != nil {
		s.logger.Warn("AI analysis failed, using fallback", "error", err)
		return s.fallback(rates, summary)
	}

	if n := utf8.RuneCountInString(reply); n < minAnalysisRunes || n > maxAnalysisRunes {
		s.logger.Warn("AI analysis failed plausibility check, using fallback", "runes", n)
		return s.fallback(rates, summary)
	}

	return models.Analysis{
		Text:        reply,
		Source:      models.AnalysisSourceAI,
		GeneratedAt: time.Now().UTC(),
	}
}

// headlines fetches the prompt news block, empty when news is
// unavailable so the prompt degrades to rates only.
func (s *AnalysisService) headlines(ctx context.Context) models.NewsFeed {
	if s.news == nil {
		return models.NewsFeed{}
	}
	feed, err := s.news.GetNews(ctx, "all", promptHeadlines)
	if err != nil {
		s.logger.Warn("news context unavailable", "error", err)
		return models.NewsFeed{}
	}
	return feed
}

func buildAnalysisPrompt(rates []models.CombinedRate, summary correlation.RegimeSummary, feed models.NewsFeed) string {
	last := rates[len(rates)-1]
	prompt := fmt.Sprintf(
		"현재 미국 10년물 국채 금리는 %s%%, 한국 10년물 국고채 금리는 %s%%이며 스프레드는 %sbp입니다. "+
			"최근 %d일 롤링 상관계수는 %.3f로 '%s' 국면입니다. "+
			"이 수치가 시사하는 양국 금리의 동조화 상태와 투자 관점의 시사점을 분석해 주세요.",
		last.USRate.Round(3), last.KRRate.Round(3), last.Spread.Round(1),
		len(rates), summary.Correlation, summary.Label)
	if headlineBlock := newsContext(feed); headlineBlock != "" {
		prompt += "\n\n" + headlineBlock + "\n뉴스 흐름도 함께 참고해 주세요."
	}
	return prompt
}

// newsContext renders the headline block of a prompt, empty when
// neither country delivered headlines.
func newsContext(feed models.NewsFeed) string {
	if len(feed.US) == 0 && len(feed.KR) == 0 {
		return ""
	}
	var b strings.Builder
	writeHeadlines(&b, "### 미국 금리 관련 뉴스", feed.US)
	b.WriteString("\n")
	writeHeadlines(&b, "### 한국 금리 관련 뉴스", feed.KR)
	return strings.TrimRight(b.String(), "\n")
}

func writeHeadlines(b *strings.Builder, header string, items []models.NewsItem) {
	b.WriteString(header + "\n")
	if len(items) == 0 {
		b.WriteString("최신 뉴스 없음\n")
		return
	}
	for i, item := range items {
		if i >= promptHeadlines {
			break
		}
		fmt.Fprintf(b, "%d. [%s] %s\n", i+1, item.Source, item.Title)
	}
}

// fallback builds deterministic commentary from the regime label and
// the short-versus-long moving average of the spread.
func (s *AnalysisService) fallback(rates []models.CombinedRate, summary correlation.RegimeSummary) models.Analysis {
	last := rates[len(rates)-1]

	text := fmt.Sprintf(
		"현재 미국 10년물 금리는 %s%%, 한국 10년물 금리는 %s%%로 스프레드는 %sbp입니다. "+
			"최근 상관계수는 %.2f로 두 시장은 '%s' 국면에 있습니다.",
		last.USRate.Round(3), last.KRRate.Round(3), last.Spread.Round(1),
		summary.Correlation, summary.Label)

	switch spreadTrend(rates) {
	case trendWidening:
		text += " 스프레드의 단기 이동평균이 장기 이동평균을 상회하고 있어 한미 금리차는 확대되는 흐름입니다."
	case trendNarrowing:
		text += " 스프레드의 단기 이동평균이 장기 이동평균을 하회하고 있어 한미 금리차는 축소되는 흐름입니다."
	}

	return models.Analysis{
		Text:        text,
		Source:      models.AnalysisSourceFallback,
		GeneratedAt: time.Now().UTC(),
	}
}

type spreadDirection int

const (
	trendFlat spreadDirection = iota
	trendWidening
	trendNarrowing
)

func spreadTrend(rates []models.CombinedRate) spreadDirection {
	if len(rates) < smaLongPeriod {
		return trendFlat
	}

	spreads := make([]float64, len(rates))
	for i, rate := range rates {
		spreads[i], _ = rate.Spread.Float64()
	}

	short := helper.ChanToSlice(trend.NewSmaWithPeriod[float64](smaShortPeriod).Compute(helper.SliceToChan(spreads)))
	long := helper.ChanToSlice(trend.NewSmaWithPeriod[float64](smaLongPeriod).Compute(helper.SliceToChan(spreads)))
	if len(short) == 0 || len(long) == 0 {
		return trendFlat
	}

	lastShort := short[len(short)-1]
	lastLong := long[len(long)-1]
	switch {
	case lastShort > lastLong:
		return trendWidening
	case lastShort < lastLong:
		return trendNarrowing
	default:
		return trendFlat
	}
}
