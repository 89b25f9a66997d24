package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RatesClient reads USD-based exchange rates from Open Exchange Rates.
type RatesClient struct {
	endpoint   string
	appID      string
	httpClient *http.Client
}

func NewRatesClient(endpoint, appID string, timeout time.Duration, httpClient *http.Client) *RatesClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &RatesClient{endpoint: endpoint, appID: appID, httpClient: httpClient}
}

func (c *RatesClient) Latest(ctx context.Context) (map[string]float64, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid rates url: %w", err)
	}
	q := u.Query()
	q.Set("app_id", c.appID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates request returned status %d", resp.StatusCode)
	}

	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode rates: %w", err)
	}
	if _, ok := body.Rates["USD"]; !ok {
		return nil, fmt.Errorf("rates response has no USD entry")
	}
	return body.Rates, nil
}
