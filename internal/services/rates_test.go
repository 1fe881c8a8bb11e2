package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	observations []models.RateObservation
	err          error
}

func (p *stubProvider) GetObservations(ctx context.Context, start, end time.Time) ([]models.RateObservation, error) {
	return p.observations, p.err
}

func (p *stubProvider) Configured() bool { return true }

type stubStore struct {
	upserted []models.CombinedRate
	recent   []models.CombinedRate
	err      error
}

func (s *stubStore) UpsertObservations(ctx context.Context, rates []models.CombinedRate) error {
	s.upserted = append(s.upserted, rates...)
	return nil
}

func (s *stubStore) RecentObservations(ctx context.Context, since time.Time) ([]models.CombinedRate, error) {
	return s.recent, s.err
}

type stubCache struct {
	entries map[string]interface{}
	sets    int
}

func (c *stubCache) Get(ctx context.Context, key string, dest interface{}) bool {
	return false
}

func (c *stubCache) Set(ctx context.Context, key string, payload interface{}, ttl time.Duration) {
	if c.entries == nil {
		c.entries = map[string]interface{}{}
	}
	c.entries[key] = payload
	c.sets++
}

func obs(daysAgo int, rate string) models.RateObservation {
	return models.RateObservation{
		Date: time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -daysAgo),
		Rate: decimal.RequireFromString(rate),
	}
}

func testRateConfig() config.RateDataConfig {
	return config.RateDataConfig{DefaultDays: 30, MaxDays: 365, CacheTTL: "1h", AnalysisTTL: "6h"}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestGetRatesMergesAndComputesSpread(t *testing.T) {
	us := &stubProvider{observations: []models.RateObservation{obs(3, "4.50"), obs(2, "4.60"), obs(1, "4.70")}}
	kr := &stubProvider{observations: []models.RateObservation{obs(3, "2.80"), obs(2, "2.90"), obs(1, "3.00")}}
	store := &stubStore{}
	cache := &stubCache{}

	svc := NewRateService(us, kr, store, cache, discardLogger(), testRateConfig())
	rates, err := svc.GetRates(context.Background(), 30)
	require.NoError(t, err)

	require.Len(t, rates, 3)
	// spread is KR minus US in basis points
	assert.Equal(t, "-170", rates[0].Spread.String())
	assert.Equal(t, "-170", rates[2].Spread.String())
	assert.True(t, rates[0].Date.Before(rates[1].Date))

	assert.Len(t, store.upserted, 3, "merged rows should be persisted as snapshot")
	assert.Equal(t, 1, cache.sets)
}

func TestGetRatesForwardFillsHolidays(t *testing.T) {
	// KR market closed on the middle day; its last value carries forward.
	us := &stubProvider{observations: []models.RateObservation{obs(3, "4.50"), obs(2, "4.60"), obs(1, "4.70")}}
	kr := &stubProvider{observations: []models.RateObservation{obs(3, "2.80"), obs(1, "3.00")}}

	svc := NewRateService(us, kr, nil, nil, discardLogger(), testRateConfig())
	rates, err := svc.GetRates(context.Background(), 30)
	require.NoError(t, err)

	require.Len(t, rates, 3)
	assert.Equal(t, "2.8", rates[1].KRRate.String())
	assert.Equal(t, "-180", rates[1].Spread.String())
}

func TestGetRatesDropsLeadingOneSidedRows(t *testing.T) {
	// US starts two days before KR; rows before the first KR value are dropped.
	us := &stubProvider{observations: []models.RateObservation{obs(5, "4.40"), obs(4, "4.45"), obs(3, "4.50")}}
	kr := &stubProvider{observations: []models.RateObservation{obs(3, "2.80")}}

	svc := NewRateService(us, kr, nil, nil, discardLogger(), testRateConfig())
	rates, err := svc.GetRates(context.Background(), 30)
	require.NoError(t, err)

	require.Len(t, rates, 1)
	assert.Equal(t, "4.5", rates[0].USRate.String())
}

func TestGetRatesSnapshotFallback(t *testing.T) {
	failing := &stubProvider{err: errors.New("upstream down")}
	snapshot := []models.CombinedRate{{
		Date:   time.Now().UTC().Truncate(24 * time.Hour),
		USRate: decimal.RequireFromString("4.57"),
		KRRate: decimal.RequireFromString("2.86"),
		Spread: decimal.RequireFromString("-171"),
	}}
	store := &stubStore{recent: snapshot}

	svc := NewRateService(failing, failing, store, nil, discardLogger(), testRateConfig())
	rates, err := svc.GetRates(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "4.57", rates[0].USRate.String())
}

func TestGetRatesFallbackEmptyReturnsCause(t *testing.T) {
	failing := &stubProvider{err: errors.New("upstream down")}
	store := &stubStore{}

	svc := NewRateService(failing, failing, store, nil, discardLogger(), testRateConfig())
	_, err := svc.GetRates(context.Background(), 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestClampDays(t *testing.T) {
	svc := NewRateService(nil, nil, nil, nil, discardLogger(), testRateConfig())

	assert.Equal(t, 1, svc.ClampDays(0))
	assert.Equal(t, 1, svc.ClampDays(-10))
	assert.Equal(t, 30, svc.ClampDays(30))
	assert.Equal(t, 365, svc.ClampDays(365))
	assert.Equal(t, 365, svc.ClampDays(9000))
}

func TestGetLatestRates(t *testing.T) {
	us := &stubProvider{observations: []models.RateObservation{obs(2, "4.60"), obs(1, "4.705")}}
	kr := &stubProvider{observations: []models.RateObservation{obs(2, "2.90"), obs(1, "3.0049")}}

	svc := NewRateService(us, kr, nil, nil, discardLogger(), testRateConfig())
	latest, err := svc.GetLatestRates(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "4.705", latest.USRate.String())
	assert.Equal(t, "3.005", latest.KRRate.String())
	today := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	assert.Equal(t, today, latest.Date)
}

func TestMergeRatesEmptyInput(t *testing.T) {
	assert.Empty(t, mergeRates(nil, nil))
	assert.Empty(t, mergeRates([]models.RateObservation{obs(1, "4.5")}, nil))
}
