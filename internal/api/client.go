// Package api talks to the calendar-share device endpoint.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dailypush/einkcal/internal/model"
)

const fetchTimeout = 10 * time.Second

// Client fetches device config and todos from the remote API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the given API base URL
// (e.g. "https://example.com/api").
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: fetchTimeout},
	}
}

// FetchDeviceData requests the device view for the date range
// (inclusive, YYYY-MM-DD). Any transport or HTTP failure is returned as an
// error; the caller treats errors as "no change, skip tick".
func (c *Client) FetchDeviceData(token, startDate, endDate string) (*model.DeviceData, error) {
	u := fmt.Sprintf("%s/calendar-shares/devices/view/%s", c.base, url.PathEscape(token))
	q := url.Values{}
	q.Set("startDate", startDate)
	q.Set("endDate", endDate)

	resp, err := c.http.Get(u + "?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("api: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api: fetch: unexpected status %s", resp.Status)
	}

	var data model.DeviceData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("api: decode: %w", err)
	}
	return &data, nil
}
