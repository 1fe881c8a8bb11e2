package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/models"
	"golang.org/x/text/language"
)

// News limits per country
const (
	MinNewsLimit = 1
	MaxNewsLimit = 10
)

// newsEdition groups the search queries for one country with the
// Google News edition (hl/gl/ceid parameters) they run under.
type newsEdition struct {
	queries []string
	locale  language.Tag
}

var newsEditions = map[string]newsEdition{
	"us": {
		queries: []string{
			"US Treasury yield",
			"Federal Reserve interest rate",
			"10-year Treasury bond",
		},
		locale: language.MustParse("en-US"),
	},
	"kr": {
		queries: []string{
			"한국 국고채 금리",
			"한국은행 기준금리",
			"채권시장 금리",
		},
		locale: language.MustParse("ko-KR"),
	},
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// NewsService fetches bond market headlines from the Google News RSS
// feed, several queries per country, merged newest first.
type NewsService struct {
	httpClient *http.Client
	baseURL    string
	cache      PayloadCache
	logger     *slog.Logger
	ttl        time.Duration
	now        func() time.Time
}

func NewNewsService(cfg config.NewsConfig, cache PayloadCache, logger *slog.Logger) *NewsService {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	ttl, err := time.ParseDuration(cfg.CacheTTL)
	if err != nil || ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &NewsService{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		cache:      cache,
		logger:     logger,
		ttl:        ttl,
		now:        time.Now,
	}
}

// ClampLimit bounds a requested per-country item count.
func ClampLimit(limit int) int {
	if limit < MinNewsLimit {
		return MinNewsLimit
	}
	if limit > MaxNewsLimit {
		return MaxNewsLimit
	}
	return limit
}

// GetNews returns headlines for the requested country ("us", "kr", or
// "all"), at most limit per country.
func (s *NewsService) GetNews(ctx context.Context, country string, limit int) (models.NewsFeed, error) {
	limit = ClampLimit(limit)

	cacheKey := fmt.Sprintf("news:%s:%d", country, limit)
	var cached models.NewsFeed
	if s.cache != nil && s.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var feed models.NewsFeed
	var err error
	switch country {
	case "us":
		feed.US, err = s.fetchCountry(ctx, "us", limit)
	case "kr":
		feed.KR, err = s.fetchCountry(ctx, "kr", limit)
	case "all":
		feed.US, err = s.fetchCountry(ctx, "us", limit)
		if err == nil {
			feed.KR, err = s.fetchCountry(ctx, "kr", limit)
		}
	default:
		return models.NewsFeed{}, fmt.Errorf("unknown country %q", country)
	}
	if err != nil {
		return models.NewsFeed{}, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, feed, s.ttl)
	}
	return feed, nil
}

// fetchCountry runs every query of the country's edition, merges the
// results with URL dedupe, and keeps the newest limit items. A failed
// query is logged and skipped as long as another one delivered.
func (s *NewsService) fetchCountry(ctx context.Context, country string, limit int) ([]models.NewsItem, error) {
	edition := newsEditions[country]

	var merged []models.NewsItem
	var firstErr error
	for _, query := range edition.queries {
		items, err := s.fetchFeed(ctx, query, edition.locale, limit)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Warn("news query failed", "query", query, "error", err)
			continue
		}
		merged = append(merged, items...)
	}
	if len(merged) == 0 && firstErr != nil {
		return nil, firstErr
	}

	merged = dedupeByURL(merged)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (s *NewsService) fetchFeed(ctx context.Context, query string, locale language.Tag, limit int) ([]models.NewsItem, error) {
	base, _ := locale.Base()
	region, _ := locale.Region()

	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", locale.String())
	params.Set("gl", region.String())
	params.Set("ceid", region.String()+":"+base.String())

	reqURL := s.baseURL + "/rss/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "RateWatch/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("news feed error (%d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read news feed: %w", err)
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse news feed: %w", err)
	}

	items := make([]models.NewsItem, 0, limit)
	for _, item := range doc.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		publishedAt, _ := time.Parse(time.RFC1123, item.PubDate)
		items = append(items, models.NewsItem{
			Title:        title,
			Source:       strings.TrimSpace(item.Source),
			URL:          item.Link,
			PublishedAt:  publishedAt,
			Snippet:      stripHTML(item.Description),
			RelativeTime: relativeTimeKorean(s.now(), publishedAt),
		})
		if len(items) >= limit {
			break
		}
	}

	return items, nil
}

// dedupeByURL keeps the first occurrence of each article URL. Items
// without a URL are kept as-is.
func dedupeByURL(items []models.NewsItem) []models.NewsItem {
	seen := make(map[string]bool, len(items))
	unique := items[:0]
	for _, item := range items {
		if item.URL != "" {
			if seen[item.URL] {
				continue
			}
			seen[item.URL] = true
		}
		unique = append(unique, item)
	}
	return unique
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Source      string `xml:"source"`
	Description string `xml:"description"`
}

func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}

// relativeTimeKorean formats the item age the way the dashboard shows
// it ("3시간 전").
func relativeTimeKorean(now, publishedAt time.Time) string {
	if publishedAt.IsZero() {
		return ""
	}
	elapsed := now.Sub(publishedAt)
	switch {
	case elapsed < time.Minute:
		return "방금 전"
	case elapsed < time.Hour:
		return fmt.Sprintf("%d분 전", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%d시간 전", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%d일 전", int(elapsed.Hours()/24))
	}
}
