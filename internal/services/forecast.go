package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ratewatch/ratewatch/internal/models"
)

// ForecastService serves the batch-produced forecast file. The file is
// re-read only when its modification time changes.
type ForecastService struct {
	path string

	mu       sync.Mutex
	loaded   *models.Forecast
	loadedAt time.Time
}

func NewForecastService(path string) *ForecastService {
	return &ForecastService{path: path}
}

// GetForecast returns the current forecast.
func (s *ForecastService) GetForecast() (*models.Forecast, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("forecast file unavailable: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded != nil && !info.ModTime().After(s.loadedAt) {
		return s.loaded, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast file: %w", err)
	}

	var forecast models.Forecast
	if err := json.Unmarshal(data, &forecast); err != nil {
		return nil, fmt.Errorf("failed to parse forecast file: %w", err)
	}
	if len(forecast.Points) == 0 {
		return nil, fmt.Errorf("forecast file contains no points")
	}

	s.loaded = &forecast
	s.loadedAt = info.ModTime()
	return s.loaded, nil
}
