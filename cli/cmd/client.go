package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/roundtable/internal/domain"
)

// apiClient calls the server's REST API.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) CreateDiscussion(ctx context.Context, req domain.CreateDiscussionRequest) (*domain.CreateDiscussionResponse, error) {
	var resp domain.CreateDiscussionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/discussions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) ListDiscussions(ctx context.Context) ([]domain.Discussion, error) {
	var resp struct {
		Discussions []domain.Discussion `json:"discussions"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/discussions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Discussions, nil
}

func (c *apiClient) GetDiscussion(ctx context.Context, discussionID string) (*domain.DiscussionDetail, error) {
	var resp domain.DiscussionDetail
	if err := c.do(ctx, http.MethodGet, "/v1/discussions/"+url.PathEscape(discussionID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// wsURL turns the REST base URL into the discussion's WebSocket endpoint.
func wsURL(baseURL, discussionID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server address: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/v1/discussions/" + url.PathEscape(discussionID) + "/ws"
	return u.String(), nil
}

func dialDiscussion(ctx context.Context, baseURL, discussionID string) (*websocket.Conn, error) {
	addr, err := wsURL(baseURL, discussionID)
	if err != nil {
		return nil, err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("discussion %s not found", discussionID)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}
