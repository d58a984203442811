package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/openclaw/quotatop/cli/internal/config"
	"github.com/openclaw/quotatop/internal/aggregate"
)

// Client pushes per-day usage snapshots to a quotatop server.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

// Snapshot is one calendar day's aggregate on the wire.
type Snapshot struct {
	Day          string  `json:"day"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	Records      int     `json:"records"`
	Cost         float64 `json:"cost"`
}

// PushRequest is the push API request body.
type PushRequest struct {
	ClientID   string     `json:"client_id"`
	ClientName string     `json:"client_name"`
	Days       []Snapshot `json:"days"`
}

// PushResponse is the push API response.
type PushResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Updated int64  `json:"updated,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse is the push status response.
type StatusResponse struct {
	LastPushAt *time.Time `json:"last_push_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// NewClient creates a push client from the saved configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FromDays converts daily aggregates to wire snapshots.
func FromDays(days []aggregate.DayTotals) []Snapshot {
	snapshots := make([]Snapshot, len(days))
	for i, d := range days {
		snapshots[i] = Snapshot{
			Day:          d.Day,
			InputTokens:  d.InputTokens,
			OutputTokens: d.OutputTokens,
			TotalTokens:  d.TotalTokens,
			Records:      d.MatchedRecords,
			Cost:         d.Cost,
		}
	}
	return snapshots
}

// LastPush returns the server's record of this client's last push, or nil if
// it has never pushed.
func (c *Client) LastPush() (*time.Time, error) {
	url := fmt.Sprintf("%s/api/push/status?client_id=%s", c.cfg.Server, c.cfg.ClientID)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	if status.Error != "" {
		return nil, fmt.Errorf("%s", status.Error)
	}

	return status.LastPushAt, nil
}

// Push uploads day snapshots and returns how many rows the server updated.
func (c *Client) Push(days []Snapshot) (int64, error) {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	reqBody := PushRequest{
		ClientID:   c.cfg.ClientID,
		ClientName: hostname,
		Days:       days,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/api/push", c.cfg.Server)
	req, err := http.NewRequest("POST", url, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var pushResp PushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return 0, err
	}

	if !pushResp.Success {
		errMsg := pushResp.Error
		if errMsg == "" {
			errMsg = pushResp.Message
		}
		return 0, fmt.Errorf("%s", errMsg)
	}

	return pushResp.Updated, nil
}
