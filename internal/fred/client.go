// Package fred fetches the US 10-Year Treasury constant-maturity yield
// from the St. Louis Fed FRED API.
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/models"
	"github.com/shopspring/decimal"
)

// Client is the FRED HTTP client.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	apiKey     string
	seriesID   string
}

// NewClient creates a FRED client from configuration.
func NewClient(cfg *config.FREDConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		seriesID:   cfg.SeriesID,
	}
}

// Configured reports whether an API key is present. Without one FRED
// rejects every request, so callers can skip the round trip.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GetObservations retrieves the yield series between start and end
// (inclusive), ascending by date. Observations FRED marks as missing
// (value ".") are skipped.
func (c *Client) GetObservations(ctx context.Context, start, end time.Time) ([]models.RateObservation, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("FRED API key is not configured")
	}

	params := url.Values{}
	params.Set("series_id", c.seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("observation_start", start.Format(models.DateLayout))
	params.Set("observation_end", end.Format(models.DateLayout))
	params.Set("sort_order", "asc")

	var response observationsResponse
	if err := c.makeRequest(ctx, "/series/observations?"+params.Encode(), &response); err != nil {
		return nil, err
	}

	observations := make([]models.RateObservation, 0, len(response.Observations))
	for _, obs := range response.Observations {
		// "." marks market holidays and other gaps
		if obs.Value == "." || obs.Value == "" {
			continue
		}
		rate, err := decimal.NewFromString(obs.Value)
		if err != nil {
			continue
		}
		date, err := time.Parse(models.DateLayout, obs.Date)
		if err != nil {
			continue
		}
		observations = append(observations, models.RateObservation{Date: date, Rate: rate})
	}

	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Date.Before(observations[j].Date)
	})

	return observations, nil
}

// makeRequest is a helper method to make HTTP requests to the FRED API
func (c *Client) makeRequest(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "RateWatch/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errorResp errorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Message != "" {
			return fmt.Errorf("FRED API error (%d): %s", resp.StatusCode, errorResp.Message)
		}
		return fmt.Errorf("FRED API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
