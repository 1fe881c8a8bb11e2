package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/correlation"
	"github.com/ratewatch/ratewatch/internal/models"
)

// alertSender is satisfied by *bot.Bot; tests substitute a mock.
type alertSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// ratesSource supplies the merged series for regime checks.
type ratesSource interface {
	GetRates(ctx context.Context, days int) ([]models.CombinedRate, error)
	DefaultDays() int
}

// RegimeMonitor periodically recomputes the rolling correlation and
// sends a Telegram alert when the regime changes between checks.
type RegimeMonitor struct {
	rates    ratesSource
	sender   alertSender
	chatID   int64
	window   int
	interval time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	lastRegime correlation.Regime
	hasLast    bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRegimeMonitor(rates ratesSource, sender alertSender, cfg config.TelegramConfig, window int, interval time.Duration, logger *slog.Logger) (*RegimeMonitor, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat ID: %w", err)
	}
	if window < 2 {
		window = correlation.DefaultWindow
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RegimeMonitor{
		rates:    rates,
		sender:   sender,
		chatID:   chatID,
		window:   window,
		interval: interval,
		logger:   logger,
	}, nil
}

// Start launches the background check loop. An immediate check runs
// before the first tick.
func (m *RegimeMonitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		m.runCheck(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.runCheck(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight check to finish.
func (m *RegimeMonitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

func (m *RegimeMonitor) runCheck(ctx context.Context) {
	if err := m.Check(ctx); err != nil {
		m.logger.Warn("regime check failed", "error", err)
	}
}

// Check runs one regime evaluation, alerting on a flip.
func (m *RegimeMonitor) Check(ctx context.Context) error {
	rates, err := m.rates.GetRates(ctx, m.rates.DefaultDays())
	if err != nil {
		return err
	}

	points := correlation.RollingCorrelation(toObservations(rates), m.window)
	if len(points) == 0 {
		return fmt.Errorf("not enough history for a %d-day window", m.window)
	}

	latest := points[len(points)-1]
	regime := correlation.Classify(latest.Correlation)

	m.mu.Lock()
	previous, hasPrevious := m.lastRegime, m.hasLast
	m.lastRegime, m.hasLast = regime, true
	m.mu.Unlock()

	if !hasPrevious || previous == regime {
		return nil
	}

	m.logger.Info("correlation regime changed",
		"from", previous.String(), "to", regime.String(), "r", latest.Correlation)

	_, err = m.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    m.chatID,
		Text:      formatRegimeAlert(previous, regime, latest),
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram alert: %w", err)
	}
	return nil
}

// toObservations converts merged rows into correlation input pairs.
func toObservations(rates []models.CombinedRate) []correlation.Observation {
	observations := make([]correlation.Observation, len(rates))
	for i, rate := range rates {
		us, _ := rate.USRate.Float64()
		kr, _ := rate.KRRate.Float64()
		observations[i] = correlation.Observation{
			Date:      rate.Date,
			Primary:   us,
			Secondary: kr,
		}
	}
	return observations
}

func formatRegimeAlert(from, to correlation.Regime, latest correlation.Point) string {
	return fmt.Sprintf(
		"*금리 동조화 국면 변화*\n%s → %s\n상관계수: %.3f (%s 기준)",
		from.Label(), to.Label(), latest.Correlation, latest.Date.Format(models.DateLayout))
}
