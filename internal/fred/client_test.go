package fred

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.FREDConfig{
		BaseURL:  serverURL,
		APIKey:   "test-key",
		SeriesID: "DGS10",
		Timeout:  5,
	})
}

func TestGetObservations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/series/observations", r.URL.Path)
		assert.Equal(t, "DGS10", r.URL.Query().Get("series_id"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "json", r.URL.Query().Get("file_type"))
		assert.Equal(t, "asc", r.URL.Query().Get("sort_order"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"observations": [
				{"date": "2025-01-02", "value": "4.57"},
				{"date": "2025-01-03", "value": "4.60"},
				{"date": "2025-01-06", "value": "."},
				{"date": "2025-01-07", "value": "4.68"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	observations, err := client.GetObservations(context.Background(), start, end)
	require.NoError(t, err)

	require.Len(t, observations, 3, "placeholder values should be skipped")
	assert.Equal(t, "2025-01-02", observations[0].Date.Format("2006-01-02"))
	assert.Equal(t, "4.57", observations[0].Rate.String())
	assert.Equal(t, "4.68", observations[2].Rate.String())
	assert.True(t, observations[0].Date.Before(observations[1].Date))
}

func TestGetObservationsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code": 400, "error_message": "Bad Request. The value for variable api_key is not registered."}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetObservations(context.Background(), time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FRED API error (400)")
	assert.Contains(t, err.Error(), "not registered")
}

func TestGetObservationsMissingKey(t *testing.T) {
	client := NewClient(&config.FREDConfig{BaseURL: "http://localhost", SeriesID: "DGS10"})
	assert.False(t, client.Configured())

	_, err := client.GetObservations(context.Background(), time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestGetObservationsContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.GetObservations(ctx, time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
}
