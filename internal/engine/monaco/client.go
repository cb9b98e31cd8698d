package monaco

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is a thin wrapper over the Monaco REST API, fetching the
// all-markets listing used by market initialization and the 60-minute
// refresh.
type Client struct {
	baseURL    string
	appID      string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a Client with a default 10s per-request timeout
// (§5 "HTTP fetches have a per-request timeout").
func NewClient(baseURL, appID, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, appID: appID, apiKey: apiKey, httpClient: httpClient}
}

type marketsPage struct {
	Markets  []RawMarket `json:"markets"`
	Events   []RawEvent  `json:"events"`
	NextPage string      `json:"nextPage,omitempty"`
}

// FetchAllMarkets pages through the Monaco markets listing and returns
// the combined set of markets and events.
func (c *Client) FetchAllMarkets(ctx context.Context) ([]RawMarket, []RawEvent, error) {
	var markets []RawMarket
	var events []RawEvent

	page := ""
	for {
		url := c.baseURL + "/markets"
		if page != "" {
			url += "?page=" + page
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("building markets request: %w", err)
		}
		req.Header.Set("X-App-Id", c.appID)
		req.Header.Set("X-Api-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("fetching markets: %w", err)
		}

		var body marketsPage
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("decoding markets page: %w", err)
		}

		markets = append(markets, body.Markets...)
		events = append(events, body.Events...)

		if body.NextPage == "" {
			break
		}
		page = body.NextPage
	}

	return markets, events, nil
}
