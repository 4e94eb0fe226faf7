package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"plugscan/internal/analysis"
	"plugscan/internal/services"
	"plugscan/internal/store"
)

const defaultHTTPTimeout = 10 * time.Minute

// Config captures the runtime settings for the speech-to-text collaborator.
type Config struct {
	BaseURL        string
	Language       string
	TimeoutSeconds int
}

// Client extracts audio from video files with ffmpeg and hands it to the
// transcription service over HTTP.
type Client struct {
	cfg           Config
	httpClient    *http.Client
	budget        services.Budget
	retryPolicy   services.RetryPolicy
	ffmpegBinary  string
	commandRunner func(ctx context.Context, name string, args ...string) error
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

// WithBudget attaches the daily STT call budget.
func WithBudget(budget services.Budget) Option {
	return func(c *Client) {
		c.budget = budget
	}
}

// WithRetryPolicy overrides the retry policy used for transcription calls.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) Option {
	return func(c *Client) {
		c.commandRunner = runner
	}
}

// NewClient constructs an STT client using the supplied configuration.
func NewClient(cfg Config, ffmpegBinary string, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Language:       strings.TrimSpace(cfg.Language),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:   &http.Client{Timeout: timeout},
		ffmpegBinary: ffmpegBinary,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ExtractAudio writes a mono 16 kHz WAV copy of the source's audio track,
// the input contract of the transcription service.
func (c *Client) ExtractAudio(ctx context.Context, source, dest string) error {
	if _, err := os.Stat(source); err != nil {
		return services.Wrap(services.ErrPermanentInput, "transcribe", "extract audio", "source media unreadable", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("extract audio: ensure output dir: %w", err)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := c.run(ctx, c.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrPermanentInput, "transcribe", "extract audio", "ffmpeg failed", err)
	}
	return nil
}

func (c *Client) run(ctx context.Context, name string, args ...string) error {
	if c.commandRunner != nil {
		return c.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

type transcribeRequest struct {
	AudioPath string `json:"audio_path"`
	Language  string `json:"language,omitempty"`
}

type transcribeResponse struct {
	Segments []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"segments"`
}

// Transcribe submits an extracted WAV file and returns the time-aligned
// transcript. Segments are sorted by start time; an empty transcript is a
// valid result, not an error.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (analysis.Transcript, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, errors.New("transcribe: audio path required")
	}
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "post", "stt base url required", nil)
	}

	var transcript analysis.Transcript
	err := services.Guard(ctx, c.budget, store.ServiceSTT, func(ctx context.Context) error {
		return services.Invoke(ctx, c.retryPolicy, func(ctx context.Context) error {
			parsed, err := c.transcribeOnce(ctx, audioPath)
			if err != nil {
				return err
			}
			transcript = parsed
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return transcript, nil
}

func (c *Client) transcribeOnce(ctx context.Context, audioPath string) (analysis.Transcript, error) {
	payload, err := json.Marshal(transcribeRequest{AudioPath: audioPath, Language: c.cfg.Language})
	if err != nil {
		return nil, fmt.Errorf("transcribe: encode body: %w", err)
	}
	endpoint := c.cfg.BaseURL + "/v1/transcribe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("transcribe: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "post", "stt service unreachable", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "post", "read response", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "post",
			fmt.Sprintf("http %d", resp.StatusCode), errors.New(strings.TrimSpace(string(body))))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, services.Wrap(services.ErrPermanentInput, "transcribe", "post",
			fmt.Sprintf("http %d", resp.StatusCode), errors.New(strings.TrimSpace(string(body))))
	}

	var parsed transcribeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "post", "decode response", err)
	}

	transcript := make(analysis.Transcript, 0, len(parsed.Segments))
	for _, segment := range parsed.Segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		if segment.End <= segment.Start {
			continue
		}
		transcript = append(transcript, analysis.TranscriptSegment{
			Start:      segment.Start,
			End:        segment.End,
			Text:       text,
			Confidence: segment.Confidence,
		})
	}
	sort.Slice(transcript, func(i, j int) bool { return transcript[i].Start < transcript[j].Start })
	return transcript, nil
}

// HealthCheck verifies the transcription service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return errors.New("stt health: base url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("stt health: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stt health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("stt health: http %d", resp.StatusCode)
	}
	return nil
}
