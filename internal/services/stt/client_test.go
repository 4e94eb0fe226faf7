package stt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"plugscan/internal/services"
	"plugscan/internal/testsupport"
)

func fastRetry() services.RetryPolicy {
	return services.RetryPolicy{Sleep: func(time.Duration) {}}
}

func TestTranscribeParsesAndSortsSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transcribe" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["language"] != "ko" {
			t.Fatalf("expected language ko, got %v", req["language"])
		}
		response := map[string]any{
			"segments": []any{
				map[string]any{"start": 30.0, "end": 33.5, "text": "둘째 문장", "confidence": 0.9},
				map[string]any{"start": 0.0, "end": 3.0, "text": "첫째 문장", "confidence": 0.95},
				map[string]any{"start": 5.0, "end": 6.0, "text": "   ", "confidence": 0.5},
				map[string]any{"start": 8.0, "end": 7.0, "text": "inverted", "confidence": 0.5},
			},
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Language: "ko"}, "ffmpeg")
	transcript, err := client.Transcribe(context.Background(), "/audio/input.wav")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(transcript) != 2 {
		t.Fatalf("expected blank and inverted segments dropped, got %d segments", len(transcript))
	}
	if transcript[0].Start != 0 || transcript[1].Start != 30 {
		t.Fatalf("expected segments sorted by start, got %v", transcript)
	}
}

func TestTranscribeEmptyResultIsNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"segments": []any{}})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, "ffmpeg")
	transcript, err := client.Transcribe(context.Background(), "/audio/silent.wav")
	if err != nil {
		t.Fatalf("empty transcript must not fail: %v", err)
	}
	if len(transcript) != 0 {
		t.Fatalf("expected empty transcript, got %v", transcript)
	}
}

func TestTranscribeClassifiesServerErrorsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, "ffmpeg", WithRetryPolicy(fastRetry()))
	_, err := client.Transcribe(context.Background(), "/audio/input.wav")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestTranscribeClassifiesClientErrorsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, "ffmpeg")
	_, err := client.Transcribe(context.Background(), "/audio/bad.wav")
	if !errors.Is(err, services.ErrPermanentInput) {
		t.Fatalf("expected permanent classification, got %v", err)
	}
}

func TestExtractAudioBuildsFFmpegArgs(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "video.mp4")
	testsupport.WriteFile(t, source, 64)
	dest := filepath.Join(base, "out", "audio.wav")

	var gotName string
	var gotArgs []string
	client := NewClient(Config{BaseURL: "http://stt"}, "ffmpeg", WithCommandRunner(
		func(ctx context.Context, name string, args ...string) error {
			gotName = name
			gotArgs = args
			return nil
		},
	))
	if err := client.ExtractAudio(context.Background(), source, dest); err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}
	if gotName != "ffmpeg" {
		t.Fatalf("expected ffmpeg invocation, got %q", gotName)
	}
	joined := map[string]bool{}
	for _, arg := range gotArgs {
		joined[arg] = true
	}
	for _, want := range []string{"-ac", "16000", "pcm_s16le", source, dest} {
		if !joined[want] {
			t.Fatalf("expected arg %q in %v", want, gotArgs)
		}
	}
}

func TestExtractAudioMissingSourceIsPermanent(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://stt"}, "ffmpeg", WithCommandRunner(
		func(ctx context.Context, name string, args ...string) error { return nil },
	))
	err := client.ExtractAudio(context.Background(), "/nonexistent/video.mp4", filepath.Join(t.TempDir(), "audio.wav"))
	if !errors.Is(err, services.ErrPermanentInput) {
		t.Fatalf("expected permanent input failure, got %v", err)
	}
}
