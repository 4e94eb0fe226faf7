package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures deep inside the pipeline.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		problems = append(problems, "paths.staging_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}

	if c.Workflow.QueuePollInterval <= 0 {
		problems = append(problems, "workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		problems = append(problems, "workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		problems = append(problems, "workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	if c.Workflow.VideoConcurrency <= 0 {
		problems = append(problems, "workflow.video_concurrency must be positive")
	}
	if c.Workflow.WindowConcurrency <= 0 {
		problems = append(problems, "workflow.window_concurrency must be positive")
	}

	if c.LLM.MaxPromptChars < 1000 {
		problems = append(problems, "llm.max_prompt_chars must be at least 1000")
	}
	if c.LLM.OverlapSeconds < 0 {
		problems = append(problems, "llm.chunk_overlap_seconds must not be negative")
	}
	if c.LLM.ConfidenceFloor < 0 || c.LLM.ConfidenceFloor > 1 {
		problems = append(problems, "llm.detection_confidence_floor must be within [0,1]")
	}

	if c.Frames.SamplesPerWindow <= 0 {
		problems = append(problems, "frames.samples_per_window must be positive")
	}
	if c.Frames.SamplingInterval <= 0 {
		problems = append(problems, "frames.sampling_interval must be positive")
	}
	if c.Frames.MinQuality < 0 || c.Frames.MinQuality > 1 {
		problems = append(problems, "frames.min_quality must be within [0,1]")
	}

	if c.Fusion.TimeToleranceSeconds < 0 {
		problems = append(problems, "fusion.time_tolerance_seconds must not be negative")
	}

	if err := validateWeights("scoring attractiveness weights",
		c.Scoring.SentimentWeight, c.Scoring.EndorsementWeight, c.Scoring.SourceTrustWeight); err != nil {
		problems = append(problems, err.Error())
	}
	if err := validateWeights("scoring ppl weights",
		c.Scoring.ExplicitWeight, c.Scoring.ImplicitWeight, c.Scoring.ContextualWeight); err != nil {
		problems = append(problems, err.Error())
	}

	for name, limit := range map[string]int{
		"quota.stt_daily":      c.Quota.STTDaily,
		"quota.llm_daily":      c.Quota.LLMDaily,
		"quota.vision_daily":   c.Quota.VisionDaily,
		"quota.commerce_daily": c.Quota.CommerceDaily,
	} {
		if limit <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive", name))
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

func validateWeights(name string, weights ...float64) error {
	var sum float64
	for _, w := range weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must each be within [0,1]", name)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("%s must sum to 1.0", name)
	}
	return nil
}
