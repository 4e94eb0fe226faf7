package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// STT contains configuration for the speech-to-text collaborator.
type STT struct {
	BaseURL        string `toml:"base_url"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains the shared chat-completion connection settings used by the
// candidate detector, detail extractor, and contextual PPL analysis.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// MaxPromptChars bounds the transcript text sent in one detection call;
	// longer transcripts are chunked with OverlapSeconds of shared speech.
	MaxPromptChars  int     `toml:"max_prompt_chars"`
	OverlapSeconds  float64 `toml:"chunk_overlap_seconds"`
	ConfidenceFloor float64 `toml:"detection_confidence_floor"`
}

// Vision contains configuration for the OCR / object-detection collaborator.
type Vision struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Commerce contains configuration for the affiliate-commerce collaborator.
type Commerce struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Frames contains frame sampling settings.
type Frames struct {
	SamplesPerWindow int     `toml:"samples_per_window"`
	SamplingInterval float64 `toml:"sampling_interval"`
	MinQuality       float64 `toml:"min_quality"`
	// HashDistance is the max Hamming distance at which two frame hashes
	// count as duplicates.
	HashDistance int `toml:"hash_distance"`
}

// Fusion contains audio-visual fusion settings.
type Fusion struct {
	TimeToleranceSeconds float64 `toml:"time_tolerance_seconds"`
}

// Scoring carries the business weighting constants. The values are taken as
// given configuration and are not derived anywhere in the code.
type Scoring struct {
	SentimentWeight   float64 `toml:"sentiment_weight"`
	EndorsementWeight float64 `toml:"endorsement_weight"`
	SourceTrustWeight float64 `toml:"source_trust_weight"`

	ExplicitWeight   float64 `toml:"ppl_explicit_weight"`
	ImplicitWeight   float64 `toml:"ppl_implicit_weight"`
	ContextualWeight float64 `toml:"ppl_contextual_weight"`
}

// Quota contains the per-service daily call ceilings.
type Quota struct {
	STTDaily      int `toml:"stt_daily"`
	LLMDaily      int `toml:"llm_daily"`
	VisionDaily   int `toml:"vision_daily"`
	CommerceDaily int `toml:"commerce_daily"`
}

// Workflow contains daemon timing, interval, and concurrency settings.
type Workflow struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
	HeartbeatInterval int `toml:"heartbeat_interval"`
	HeartbeatTimeout  int `toml:"heartbeat_timeout"`
	// VideoConcurrency bounds how many videos are processed at once;
	// WindowConcurrency bounds concurrent candidate windows per video.
	VideoConcurrency  int `toml:"video_concurrency"`
	WindowConcurrency int `toml:"window_concurrency"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for plugscan.
//
// Configuration sections by subsystem:
//   - Paths: staging/log directories and API bind address
//   - STT: speech-to-text service connection
//   - LLM: shared chat-completion connection and chunking bounds
//   - Vision: OCR / object-detection service connection
//   - Commerce: affiliate product search connection
//   - Frames: sampling counts and quality floors
//   - Fusion: time alignment tolerance
//   - Scoring: attractiveness and PPL weighting constants
//   - Quota: per-service daily call ceilings
//   - Workflow: daemon polling, heartbeats, concurrency ceilings
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	STT      STT      `toml:"stt"`
	LLM      LLM      `toml:"llm"`
	Vision   Vision   `toml:"vision"`
	Commerce Commerce `toml:"commerce"`
	Frames   Frames   `toml:"frames"`
	Fusion   Fusion   `toml:"fusion"`
	Scoring  Scoring  `toml:"scoring"`
	Quota    Quota    `toml:"quota"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/plugscan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("plugscan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for audio and frame
// extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// WriteSample writes the annotated sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
