package acs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/device"
)

// Client talks to the auto-configuration server's task API. The ACS applies
// parameter changes asynchronously; an accepted task says nothing about
// whether the device picked it up yet.
type Client struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With().Str("component", "acs_client").Logger(),
	}
}

type setParameterTask struct {
	Name            string     `json:"name"`
	ParameterValues [][]string `json:"parameterValues"`
}

type taskResponse struct {
	ID string `json:"_id"`
}

// ApplyParameters submits the whole batch as one task so a mid-batch
// failure can never leave the device half-configured from our side.
func (c *Client) ApplyParameters(ctx context.Context, deviceRef string, params []device.Parameter) (*device.ApplyResult, error) {
	values := make([][]string, 0, len(params))
	for _, p := range params {
		values = append(values, []string{p.Path, p.Value})
	}
	body, err := json.Marshal(setParameterTask{Name: "setParameterValues", ParameterValues: values})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/devices/%s/tasks?connection_request", c.baseURL, url.PathEscape(deviceRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
		var task taskResponse
		if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
			// The task was queued even if the body did not parse.
			c.logger.Debug().Err(err).Msg("task response decode failed")
		}
		return &device.ApplyResult{Accepted: true, TaskRef: task.ID}, nil
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &device.ApplyResult{Accepted: false}, nil
	default:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error().Int("status", resp.StatusCode).Bytes("body", payload).Str("device", deviceRef).Msg("task submission rejected")
		return nil, fmt.Errorf("%w: status %d", device.ErrUpstream, resp.StatusCode)
	}
}

// QueryDeviceSnapshot reads the backend's cached view of the device. A
// device is considered online when it informed within the last 5 minutes.
func (c *Client) QueryDeviceSnapshot(ctx context.Context, deviceRef string) (*device.Snapshot, error) {
	query := url.Values{}
	query.Set("query", fmt.Sprintf(`{"_id":%q}`, deviceRef))
	endpoint := fmt.Sprintf("%s/devices/?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", device.ErrUpstream, resp.StatusCode)
	}

	var docs []map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrUpstream, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	snap := &device.Snapshot{Parameters: map[string]string{}}
	if raw, ok := docs[0]["_lastInform"]; ok {
		_ = json.Unmarshal(raw, &snap.LastSeenAt)
	}
	snap.Online = time.Since(snap.LastSeenAt) < 5*time.Minute
	for key, raw := range docs[0] {
		var value struct {
			Value any `json:"_value"`
		}
		if err := json.Unmarshal(raw, &value); err != nil || value.Value == nil {
			continue
		}
		snap.Parameters[key] = fmt.Sprintf("%v", value.Value)
	}
	return snap, nil
}
