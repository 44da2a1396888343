// Package alertsource talks to the alert server's read endpoints
package alertsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/irisdrone/bladealert/internal/models"
)

// NetworkError reports a failed call to the alert server: transport failure,
// non-2xx status, undecodable body or an error status in the payload.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Client handles communication with the alert server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the server address the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Live fetches one page of the server's recent-alert cache
func (c *Client) Live(ctx context.Context, page, perPage int) (*models.AlertPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var out models.AlertPage
	if err := c.get(ctx, "live alerts", "/api/alerts", q, &out); err != nil {
		return nil, err
	}
	if out.Status != models.StatusSuccess {
		return nil, &NetworkError{Op: "live alerts", Err: fmt.Errorf("server error: %s", out.Message)}
	}
	return &out, nil
}

// Search queries persisted alerts by time range and filters
func (c *Client) Search(ctx context.Context, p models.SearchParams) (*models.AlertPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("per_page", strconv.Itoa(p.PerPage))
	q.Set("start_time", p.StartTime)
	q.Set("end_time", p.EndTime)
	q.Set("camera_id", p.CameraID)
	q.Set("defect_name", p.DefectName)
	q.Set("min_confidence", strconv.FormatFloat(p.MinConfidence, 'f', -1, 64))

	var out models.AlertPage
	if err := c.get(ctx, "search alerts", "/api/alerts/search", q, &out); err != nil {
		return nil, err
	}
	if out.Status != models.StatusSuccess {
		return nil, &NetworkError{Op: "search alerts", Err: fmt.Errorf("server error: %s", out.Message)}
	}
	return &out, nil
}

// Cameras fetches the list of known camera ids
func (c *Client) Cameras(ctx context.Context) ([]string, error) {
	var out models.CameraList
	if err := c.get(ctx, "list cameras", "/api/cameras", nil, &out); err != nil {
		return nil, err
	}
	if out.Status != models.StatusSuccess {
		return nil, &NetworkError{Op: "list cameras", Err: fmt.Errorf("server error: %s", out.Message)}
	}
	return out.Cameras, nil
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("failed to connect to server: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(respBody)))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
