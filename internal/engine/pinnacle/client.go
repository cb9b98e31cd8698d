package pinnacle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client wraps the Pinnacle REST odds feed.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a Client with a default 10s per-request timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, httpClient: httpClient}
}

type oddsResponse struct {
	Events []Event `json:"events"`
}

// FetchOdds fetches the current odds snapshot for every event Pinnacle
// is currently carrying.
func (c *Client) FetchOdds(ctx context.Context) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/odds", nil)
	if err != nil {
		return nil, fmt.Errorf("building odds request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching pinnacle odds: %w", err)
	}
	defer resp.Body.Close()

	var body oddsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding pinnacle odds: %w", err)
	}
	return body.Events, nil
}
