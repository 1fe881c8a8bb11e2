package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleForecast = `{
	"generated_at": "2025-01-27T00:00:00Z",
	"model": "var-spread-v2",
	"points": [
		{"date": "2025-01-28", "us_rate": "4.58", "kr_rate": "2.87", "spread": "-171"},
		{"date": "2025-01-29", "us_rate": "4.56", "kr_rate": "2.88", "spread": "-168"}
	]
}`

func writeForecastFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forecast.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGetForecast(t *testing.T) {
	svc := NewForecastService(writeForecastFile(t, sampleForecast))

	forecast, err := svc.GetForecast()
	require.NoError(t, err)

	assert.Equal(t, "var-spread-v2", forecast.Model)
	require.Len(t, forecast.Points, 2)
	assert.Equal(t, "2025-01-28", forecast.Points[0].Date)
	assert.Equal(t, "4.58", forecast.Points[0].USRate.String())
}

func TestGetForecastCachesUntilFileChanges(t *testing.T) {
	path := writeForecastFile(t, sampleForecast)
	svc := NewForecastService(path)

	first, err := svc.GetForecast()
	require.NoError(t, err)

	again, err := svc.GetForecast()
	require.NoError(t, err)
	assert.Same(t, first, again, "unchanged file should not be re-parsed")

	updated := `{"generated_at": "2025-01-28T00:00:00Z", "model": "var-spread-v3",
		"points": [{"date": "2025-01-30", "us_rate": "4.50", "kr_rate": "2.90", "spread": "-160"}]}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	reloaded, err := svc.GetForecast()
	require.NoError(t, err)
	assert.Equal(t, "var-spread-v3", reloaded.Model)
}

func TestGetForecastMissingFile(t *testing.T) {
	svc := NewForecastService(filepath.Join(t.TempDir(), "missing.json"))
	_, err := svc.GetForecast()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
}

func TestGetForecastMalformed(t *testing.T) {
	svc := NewForecastService(writeForecastFile(t, "not json"))
	_, err := svc.GetForecast()
	require.Error(t, err)
}

func TestGetForecastEmptyPoints(t *testing.T) {
	svc := NewForecastService(writeForecastFile(t, `{"points": []}`))
	_, err := svc.GetForecast()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no points")
}
