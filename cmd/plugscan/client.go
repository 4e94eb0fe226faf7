package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"

	"plugscan/internal/api"
)

// apiClient talks to the plugscand HTTP API.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(addr string, httpClient *http.Client) *apiClient {
	addr = strings.TrimSpace(addr)
	if addr != "" && !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &apiClient{
		baseURL:    strings.TrimRight(addr, "/"),
		httpClient: httpClient,
	}
}

// apiError is a non-2xx response from the daemon.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return e.Message
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, wrapConnError(err, c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		message := strings.TrimSpace(payload.Error)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, &apiError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func wrapConnError(err error, base string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && errors.Is(urlErr.Err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start the daemon with `plugscand`", base)
	}
	return fmt.Errorf("connect to daemon at %s: %w", base, err)
}

func (c *apiClient) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	_, err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

func (c *apiClient) ListVideos(ctx context.Context, statuses []string) ([]api.Video, error) {
	query := url.Values{}
	for _, status := range statuses {
		query.Add("status", status)
	}
	path := "/api/videos"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var resp api.VideoListResponse
	if _, err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Videos, nil
}

func (c *apiClient) AddVideo(ctx context.Context, sourcePath, title string) (api.AddResult, error) {
	var result api.AddResult
	req := api.AddVideoRequest{SourcePath: sourcePath, Title: title}
	_, err := c.do(ctx, http.MethodPost, "/api/videos", req, &result)
	return result, err
}

func (c *apiClient) GetVideo(ctx context.Context, id int64) (api.Video, error) {
	var resp api.VideoResponse
	if _, err := c.do(ctx, http.MethodGet, videoPath(id), nil, &resp); err != nil {
		return api.Video{}, err
	}
	return resp.Video, nil
}

func (c *apiClient) CancelVideo(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodPost, videoPath(id)+"/cancel", nil, nil)
	return err
}

func (c *apiClient) RemoveVideo(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, videoPath(id), nil, nil)
	return err
}

func (c *apiClient) RetryVideos(ctx context.Context, ids []int64) (int64, error) {
	var body any
	if len(ids) > 0 {
		body = map[string][]int64{"ids": ids}
	}
	var resp map[string]int64
	if _, err := c.do(ctx, http.MethodPost, "/api/videos/retry", body, &resp); err != nil {
		return 0, err
	}
	return resp["retried"], nil
}

func (c *apiClient) ClearCompleted(ctx context.Context) (int64, error) {
	var resp map[string]int64
	if _, err := c.do(ctx, http.MethodPost, "/api/videos/clear-completed", nil, &resp); err != nil {
		return 0, err
	}
	return resp["removed"], nil
}

func (c *apiClient) ClearFailed(ctx context.Context) (int64, error) {
	var resp map[string]int64
	if _, err := c.do(ctx, http.MethodPost, "/api/videos/clear-failed", nil, &resp); err != nil {
		return 0, err
	}
	return resp["removed"], nil
}

func (c *apiClient) VideoRecords(ctx context.Context, id int64) ([]api.Record, error) {
	var resp api.RecordListResponse
	if _, err := c.do(ctx, http.MethodGet, videoPath(id)+"/records", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *apiClient) ListRecords(ctx context.Context, states []string) ([]api.Record, error) {
	query := url.Values{}
	for _, state := range states {
		query.Add("state", state)
	}
	path := "/api/records"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var resp api.RecordListResponse
	if _, err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *apiClient) GetRecord(ctx context.Context, id string) (api.Record, error) {
	var resp api.RecordResponse
	if _, err := c.do(ctx, http.MethodGet, recordPath(id), nil, &resp); err != nil {
		return api.Record{}, err
	}
	return resp.Record, nil
}

func (c *apiClient) TransitionRecord(ctx context.Context, id, to, note string) (api.Record, error) {
	var resp api.RecordResponse
	req := api.TransitionRequest{To: to, Note: note}
	if _, err := c.do(ctx, http.MethodPost, recordPath(id)+"/transition", req, &resp); err != nil {
		return api.Record{}, err
	}
	return resp.Record, nil
}

func videoPath(id int64) string {
	return "/api/videos/" + strconv.FormatInt(id, 10)
}

func recordPath(id string) string {
	return "/api/records/" + url.PathEscape(id)
}
