// Package services holds the application services behind the HTTP
// handlers: rate retrieval and merging, AI commentary, news, chat,
// forecasts, and the regime monitor.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/models"
	"github.com/shopspring/decimal"
)

// ffillBuffer is how many extra calendar days are fetched before the
// requested window so forward-fill has values to carry into it.
const ffillBuffer = 14

var bpFactor = decimal.NewFromInt(100)

// RateProvider fetches a single country's daily yield series.
type RateProvider interface {
	GetObservations(ctx context.Context, start, end time.Time) ([]models.RateObservation, error)
	Configured() bool
}

// SnapshotStore persists merged rows for use when providers are down.
type SnapshotStore interface {
	UpsertObservations(ctx context.Context, rates []models.CombinedRate) error
	RecentObservations(ctx context.Context, since time.Time) ([]models.CombinedRate, error)
}

// PayloadCache is the Redis response cache.
type PayloadCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, payload interface{}, ttl time.Duration)
}

// RateService merges the US and KR yield series into the combined
// spread series served by the API.
type RateService struct {
	us       RateProvider
	kr       RateProvider
	store    SnapshotStore
	cache    PayloadCache
	logger   *slog.Logger
	cfg      config.RateDataConfig
	cacheTTL time.Duration
}

func NewRateService(us, kr RateProvider, store SnapshotStore, cache PayloadCache, logger *slog.Logger, cfg config.RateDataConfig) *RateService {
	ttl, err := time.ParseDuration(cfg.CacheTTL)
	if err != nil || ttl <= 0 {
		ttl = time.Hour
	}
	return &RateService{
		us:       us,
		kr:       kr,
		store:    store,
		cache:    cache,
		logger:   logger,
		cfg:      cfg,
		cacheTTL: ttl,
	}
}

// ClampDays bounds a requested lookback to [1, max_days].
func (s *RateService) ClampDays(days int) int {
	if days < 1 {
		return 1
	}
	if days > s.cfg.MaxDays {
		return s.cfg.MaxDays
	}
	return days
}

// DefaultDays returns the configured default lookback window.
func (s *RateService) DefaultDays() int {
	return s.cfg.DefaultDays
}

// GetRates returns the merged series covering the last days calendar
// days, ascending. Results are cached; when both providers fail the
// latest persisted snapshot is served instead.
func (s *RateService) GetRates(ctx context.Context, days int) ([]models.CombinedRate, error) {
	days = s.ClampDays(days)
	cacheKey := fmt.Sprintf("rates:%d", days)

	var cached []models.CombinedRate
	if s.cache != nil && s.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	cutoff := end.AddDate(0, 0, -days)
	start := cutoff.AddDate(0, 0, -ffillBuffer)

	usObs, usErr := s.us.GetObservations(ctx, start, end)
	krObs, krErr := s.kr.GetObservations(ctx, start, end)

	if usErr != nil || krErr != nil {
		err := usErr
		if err == nil {
			err = krErr
		}
		s.logger.Warn("provider fetch failed, trying snapshot fallback", "error", err)
		return s.snapshotFallback(ctx, cutoff, err)
	}

	merged := mergeRates(usObs, krObs)
	rates := trimToWindow(merged, cutoff)
	if len(rates) == 0 {
		return s.snapshotFallback(ctx, cutoff, fmt.Errorf("no overlapping observations in window"))
	}

	if s.store != nil {
		if err := s.store.UpsertObservations(ctx, rates); err != nil {
			s.logger.Warn("failed to persist rate snapshot", "error", err)
		}
	}
	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, rates, s.cacheTTL)
	}

	return rates, nil
}

// GetLatestRates returns the most recent merged row.
func (s *RateService) GetLatestRates(ctx context.Context) (models.LatestRates, error) {
	rates, err := s.GetRates(ctx, ffillBuffer)
	if err != nil {
		return models.LatestRates{}, err
	}
	if len(rates) == 0 {
		return models.LatestRates{}, fmt.Errorf("no rate data available")
	}

	last := rates[len(rates)-1]
	return models.LatestRates{
		USRate: last.USRate.Round(3),
		KRRate: last.KRRate.Round(3),
		Spread: last.Spread.Round(1),
		Date:   last.Date.Format(models.DateLayout),
	}, nil
}

func (s *RateService) snapshotFallback(ctx context.Context, cutoff time.Time, cause error) ([]models.CombinedRate, error) {
	if s.store == nil {
		return nil, cause
	}
	rates, err := s.store.RecentObservations(ctx, cutoff)
	if err != nil {
		s.logger.Error("snapshot fallback failed", "error", err)
		return nil, cause
	}
	if len(rates) == 0 {
		return nil, cause
	}
	s.logger.Info("serving rates from snapshot fallback", "rows", len(rates))
	return rates, nil
}

// mergeRates outer-joins the two series on date, forward-fills each
// side across the other's holidays, and computes the spread in basis
// points. Leading dates where either side has no value yet are dropped.
func mergeRates(us, kr []models.RateObservation) []models.CombinedRate {
	usByDate := make(map[string]decimal.Decimal, len(us))
	krByDate := make(map[string]decimal.Decimal, len(kr))
	dateSet := make(map[string]time.Time, len(us)+len(kr))

	for _, obs := range us {
		key := obs.Date.Format(models.DateLayout)
		usByDate[key] = obs.Rate
		dateSet[key] = obs.Date
	}
	for _, obs := range kr {
		key := obs.Date.Format(models.DateLayout)
		krByDate[key] = obs.Rate
		dateSet[key] = obs.Date
	}

	dates := make([]string, 0, len(dateSet))
	for key := range dateSet {
		dates = append(dates, key)
	}
	sort.Strings(dates)

	merged := make([]models.CombinedRate, 0, len(dates))
	var lastUS, lastKR decimal.Decimal
	var haveUS, haveKR bool
	for _, key := range dates {
		if rate, ok := usByDate[key]; ok {
			lastUS, haveUS = rate, true
		}
		if rate, ok := krByDate[key]; ok {
			lastKR, haveKR = rate, true
		}
		if !haveUS || !haveKR {
			continue
		}
		merged = append(merged, models.CombinedRate{
			Date:   dateSet[key],
			USRate: lastUS,
			KRRate: lastKR,
			Spread: lastKR.Sub(lastUS).Mul(bpFactor),
		})
	}

	return merged
}

func trimToWindow(rates []models.CombinedRate, cutoff time.Time) []models.CombinedRate {
	idx := sort.Search(len(rates), func(i int) bool {
		return !rates[i].Date.Before(cutoff)
	})
	return rates[idx:]
}
