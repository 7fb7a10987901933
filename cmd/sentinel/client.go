package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tradingstack/sentinel"
)

const defaultAPIURL = "http://127.0.0.1:8917"

// apiClient talks to a running watchdog's read-only status API.
type apiClient struct {
	baseURL string
	client  *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	if timeout <= 0 {
		timeout = sentinel.DefaultAPITimeout
	}
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) Status() (sentinel.Snapshot, error) {
	var snap sentinel.Snapshot
	err := c.getJSON(c.baseURL+"/status", &snap)
	return snap, err
}

func (c *apiClient) Events(limit int) ([]sentinel.Event, error) {
	url := c.baseURL + "/events"
	if limit > 0 {
		url += "?limit=" + strconv.Itoa(limit)
	}
	var events []sentinel.Event
	err := c.getJSON(url, &events)
	return events, err
}

func (c *apiClient) getJSON(url string, out any) error {
	resp, err := c.client.Get(url)
	if err != nil {
		return fmt.Errorf("watchdog not reachable at %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("API error: %s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
