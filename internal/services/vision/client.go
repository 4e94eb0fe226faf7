package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"plugscan/internal/analysis"
	"plugscan/internal/services"
	"plugscan/internal/store"
)

const defaultHTTPTimeout = 2 * time.Minute

// Config captures the vision service settings.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
}

// Client talks to the frame analysis service, which runs OCR and object
// detection over a single image per request.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	budget      services.Budget
	retryPolicy services.RetryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBudget attaches the daily vision call budget.
func WithBudget(budget services.Budget) Option {
	return func(c *Client) {
		c.budget = budget
	}
}

// WithRetryPolicy overrides the retry policy used for analysis calls.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// NewClient constructs a vision client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type analyzeRequest struct {
	ImagePath string `json:"image_path"`
}

type analyzeResponse struct {
	Detections []struct {
		Kind       string  `json:"kind"`
		Payload    string  `json:"payload"`
		Confidence float64 `json:"confidence"`
	} `json:"detections"`
}

// AnalyzeFrame submits one extracted frame and returns its detections
// stamped with the frame timestamp. A frame with nothing recognizable in
// it yields an empty slice, not an error.
func (c *Client) AnalyzeFrame(ctx context.Context, frame analysis.ExtractedFrame) ([]analysis.VisualDetection, error) {
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "vision.analyze", "vision base URL is not configured", nil)
	}
	var detections []analysis.VisualDetection
	err := services.Guard(ctx, c.budget, store.ServiceVision, func(ctx context.Context) error {
		return services.Invoke(ctx, c.retryPolicy, func(ctx context.Context) error {
			result, err := c.analyzeOnce(ctx, frame)
			if err != nil {
				return err
			}
			detections = result
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return detections, nil
}

func (c *Client) analyzeOnce(ctx context.Context, frame analysis.ExtractedFrame) ([]analysis.VisualDetection, error) {
	const op = "vision.analyze"

	body, err := json.Marshal(analyzeRequest{ImagePath: frame.ImagePath})
	if err != nil {
		return nil, services.Wrap(services.ErrPermanentInput, "", op, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrPermanentInput, "", op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", op, "vision service unreachable", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", op, "read response", err)
	}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, services.Wrap(services.ErrTransient, "", op, fmt.Sprintf("vision service returned %d", resp.StatusCode), nil)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, services.Wrap(services.ErrPermanentInput, "", op, fmt.Sprintf("vision service rejected frame with %d", resp.StatusCode), nil)
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, services.Wrap(services.ErrTransient, "", op, "decode response", err)
	}

	detections := make([]analysis.VisualDetection, 0, len(parsed.Detections))
	for _, det := range parsed.Detections {
		payload := strings.TrimSpace(det.Payload)
		if payload == "" {
			continue
		}
		kind := analysis.DetectionKind(det.Kind)
		if kind != analysis.DetectionText && kind != analysis.DetectionObject {
			continue
		}
		detections = append(detections, analysis.VisualDetection{
			Timestamp:  frame.Timestamp,
			Kind:       kind,
			Payload:    payload,
			Confidence: det.Confidence,
		})
	}
	return detections, nil
}

// HealthCheck probes the vision service without consuming budget.
func (c *Client) HealthCheck(ctx context.Context) error {
	const op = "vision.health"

	if c.cfg.BaseURL == "" {
		return services.Wrap(services.ErrConfiguration, "", op, "vision base URL is not configured", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return services.Wrap(services.ErrPermanentInput, "", op, "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "", op, "vision service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "", op, fmt.Sprintf("vision service returned %d", resp.StatusCode), nil)
	}
	return nil
}
