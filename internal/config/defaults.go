package config

const (
	defaultStagingDir        = "~/.local/share/plugscan/staging"
	defaultLogDir            = "~/.local/share/plugscan/logs"
	defaultAPIBind           = "127.0.0.1:7496"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultQueuePollInterval = 5
	defaultHeartbeatInterval = 15
	defaultHeartbeatTimeout  = 120
	defaultVideoConcurrency  = 2
	defaultWindowConcurrency = 3

	defaultSTTBaseURL        = "http://127.0.0.1:9090"
	defaultSTTLanguage       = "ko"
	defaultSTTTimeoutSeconds = 600

	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-3-flash-preview"
	defaultLLMReferer         = "https://github.com/plugscan/plugscan"
	defaultLLMTitle           = "Plugscan Analyzer"
	defaultLLMTimeoutSeconds  = 60
	defaultLLMMaxPromptChars  = 24000
	defaultLLMOverlapSeconds  = 20.0
	defaultLLMConfidenceFloor = 0.3

	defaultVisionBaseURL        = "http://127.0.0.1:9091"
	defaultVisionTimeoutSeconds = 60

	defaultCommerceBaseURL        = "https://api.example-partners.com"
	defaultCommerceTimeoutSeconds = 15

	defaultSamplesPerWindow = 6
	defaultSamplingInterval = 2.0
	defaultMinFrameQuality  = 0.25
	defaultHashDistance     = 5

	defaultFusionTimeTolerance = 2.0

	defaultSentimentWeight   = 0.50
	defaultEndorsementWeight = 0.35
	defaultSourceTrustWeight = 0.15
	defaultExplicitWeight    = 0.60
	defaultImplicitWeight    = 0.25
	defaultContextualWeight  = 0.15

	defaultSTTDailyQuota      = 200
	defaultLLMDailyQuota      = 1000
	defaultVisionDailyQuota   = 2000
	defaultCommerceDailyQuota = 500
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		STT: STT{
			BaseURL:        defaultSTTBaseURL,
			Language:       defaultSTTLanguage,
			TimeoutSeconds: defaultSTTTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:         defaultLLMBaseURL,
			Model:           defaultLLMModel,
			Referer:         defaultLLMReferer,
			Title:           defaultLLMTitle,
			TimeoutSeconds:  defaultLLMTimeoutSeconds,
			MaxPromptChars:  defaultLLMMaxPromptChars,
			OverlapSeconds:  defaultLLMOverlapSeconds,
			ConfidenceFloor: defaultLLMConfidenceFloor,
		},
		Vision: Vision{
			BaseURL:        defaultVisionBaseURL,
			TimeoutSeconds: defaultVisionTimeoutSeconds,
		},
		Commerce: Commerce{
			BaseURL:        defaultCommerceBaseURL,
			TimeoutSeconds: defaultCommerceTimeoutSeconds,
		},
		Frames: Frames{
			SamplesPerWindow: defaultSamplesPerWindow,
			SamplingInterval: defaultSamplingInterval,
			MinQuality:       defaultMinFrameQuality,
			HashDistance:     defaultHashDistance,
		},
		Fusion: Fusion{
			TimeToleranceSeconds: defaultFusionTimeTolerance,
		},
		Scoring: Scoring{
			SentimentWeight:   defaultSentimentWeight,
			EndorsementWeight: defaultEndorsementWeight,
			SourceTrustWeight: defaultSourceTrustWeight,
			ExplicitWeight:    defaultExplicitWeight,
			ImplicitWeight:    defaultImplicitWeight,
			ContextualWeight:  defaultContextualWeight,
		},
		Quota: Quota{
			STTDaily:      defaultSTTDailyQuota,
			LLMDaily:      defaultLLMDailyQuota,
			VisionDaily:   defaultVisionDailyQuota,
			CommerceDaily: defaultCommerceDailyQuota,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
			VideoConcurrency:  defaultVideoConcurrency,
			WindowConcurrency: defaultWindowConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
