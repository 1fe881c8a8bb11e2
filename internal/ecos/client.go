// Package ecos fetches the Korean 10-Year Treasury Bond yield from the
// Bank of Korea ECOS open API.
package ecos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/models"
	"github.com/shopspring/decimal"
)

const timeLayout = "20060102"

// Client is the ECOS HTTP client.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	apiKey     string
	tableCode  string
	itemCode   string
	pageSize   int
}

// NewClient creates an ECOS client from configuration.
func NewClient(cfg *config.ECOSConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10000
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		tableCode:  cfg.TableCode,
		itemCode:   cfg.ItemCode,
		pageSize:   pageSize,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GetObservations retrieves the daily yield series between start and end
// (inclusive), ascending by date. ECOS pages results through positional
// row indices in the URL path; pages are fetched until list_total_count
// is exhausted. Duplicate dates keep the last value seen.
func (c *Client) GetObservations(ctx context.Context, start, end time.Time) ([]models.RateObservation, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("ECOS API key is not configured")
	}

	byDate := make(map[string]models.RateObservation)
	for rowStart := 1; ; rowStart += c.pageSize {
		rowEnd := rowStart + c.pageSize - 1
		path := fmt.Sprintf("/StatisticSearch/%s/json/kr/%d/%d/%s/D/%s/%s/%s",
			c.apiKey, rowStart, rowEnd, c.tableCode,
			start.Format(timeLayout), end.Format(timeLayout), c.itemCode)

		var response searchResponse
		if err := c.makeRequest(ctx, path, &response); err != nil {
			return nil, err
		}
		if response.Result.Code != "" {
			// INFO-200 means no rows for the range, not a failure
			if response.Result.Code == "INFO-200" {
				break
			}
			return nil, fmt.Errorf("ECOS API error (%s): %s", response.Result.Code, response.Result.Message)
		}

		for _, row := range response.StatisticSearch.Rows {
			date, err := time.Parse(timeLayout, row.Time)
			if err != nil {
				continue
			}
			rate, err := decimal.NewFromString(row.DataValue)
			if err != nil {
				continue
			}
			byDate[row.Time] = models.RateObservation{Date: date, Rate: rate}
		}

		if rowEnd >= response.StatisticSearch.TotalCount {
			break
		}
	}

	observations := make([]models.RateObservation, 0, len(byDate))
	for _, obs := range byDate {
		observations = append(observations, obs)
	}
	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Date.Before(observations[j].Date)
	})

	return observations, nil
}

// makeRequest is a helper method to make HTTP requests to the ECOS API
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
		return fmt.Errorf("ECOS API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
