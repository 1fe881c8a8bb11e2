package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRatesSource struct {
	rates []models.CombinedRate
	err   error
}

func (s *stubRatesSource) GetRates(ctx context.Context, days int) ([]models.CombinedRate, error) {
	return s.rates, s.err
}

func (s *stubRatesSource) DefaultDays() int { return 30 }

type stubSender struct {
	sent []*bot.SendMessageParams
	err  error
}

func (s *stubSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	s.sent = append(s.sent, params)
	return &tgmodels.Message{}, s.err
}

// coupledRates yields r close to 1: both series rise together.
func coupledRates(n int) []models.CombinedRate {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rates := make([]models.CombinedRate, n)
	for i := range rates {
		rates[i] = models.CombinedRate{
			Date:   base.AddDate(0, 0, i),
			USRate: decimal.NewFromFloat(4.0 + float64(i)*0.01),
			KRRate: decimal.NewFromFloat(2.5 + float64(i)*0.01),
			Spread: decimal.NewFromInt(-150),
		}
	}
	return rates
}

// decoupledRates yields r close to -1: the series move against each other.
func decoupledRates(n int) []models.CombinedRate {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rates := make([]models.CombinedRate, n)
	for i := range rates {
		rates[i] = models.CombinedRate{
			Date:   base.AddDate(0, 0, i),
			USRate: decimal.NewFromFloat(4.0 + float64(i)*0.01),
			KRRate: decimal.NewFromFloat(3.5 - float64(i)*0.01),
			Spread: decimal.NewFromInt(-50),
		}
	}
	return rates
}

func newMonitor(t *testing.T, source ratesSource, sender alertSender) *RegimeMonitor {
	t.Helper()
	m, err := NewRegimeMonitor(source, sender, config.TelegramConfig{ChatID: "12345"},
		20, time.Hour, discardLogger())
	require.NoError(t, err)
	return m
}

func TestCheckNoAlertOnFirstRun(t *testing.T) {
	sender := &stubSender{}
	m := newMonitor(t, &stubRatesSource{rates: coupledRates(30)}, sender)

	require.NoError(t, m.Check(context.Background()))
	assert.Empty(t, sender.sent, "first observation establishes the baseline silently")
}

func TestCheckNoAlertWhenRegimeUnchanged(t *testing.T) {
	sender := &stubSender{}
	source := &stubRatesSource{rates: coupledRates(30)}
	m := newMonitor(t, source, sender)

	require.NoError(t, m.Check(context.Background()))
	require.NoError(t, m.Check(context.Background()))
	assert.Empty(t, sender.sent)
}

func TestCheckAlertsOnRegimeFlip(t *testing.T) {
	sender := &stubSender{}
	source := &stubRatesSource{rates: coupledRates(30)}
	m := newMonitor(t, source, sender)

	require.NoError(t, m.Check(context.Background()))

	source.rates = decoupledRates(30)
	require.NoError(t, m.Check(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.EqualValues(t, int64(12345), sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "동조화")
	assert.Contains(t, sender.sent[0].Text, "탈동조화")
}

func TestCheckInsufficientHistory(t *testing.T) {
	sender := &stubSender{}
	m := newMonitor(t, &stubRatesSource{rates: coupledRates(5)}, sender)

	err := m.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough history")
	assert.Empty(t, sender.sent)
}

func TestNewRegimeMonitorInvalidChatID(t *testing.T) {
	_, err := NewRegimeMonitor(&stubRatesSource{}, &stubSender{},
		config.TelegramConfig{ChatID: "not-a-number"}, 20, time.Hour, discardLogger())
	require.Error(t, err)
}

func TestStartStop(t *testing.T) {
	sender := &stubSender{}
	m := newMonitor(t, &stubRatesSource{rates: coupledRates(30)}, sender)

	m.Start(context.Background())
	m.Stop()
}
