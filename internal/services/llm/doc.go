// Package llm provides an OpenAI-compatible chat client for JSON-only
// completions.
//
// This package is used by:
//   - Detect stage: find candidate endorsement windows in transcript chunks
//   - Analyze stage: extract product details from fused windows
//   - Score stage: judge contextual commercial likelihood
//
// # Configuration
//
// Requires api_key, model, and optionally base_url, referer, title, timeout.
// The prompt constants in prompts.go are the only prompt text in the repo;
// callers pass them to CompleteJSON together with their payload.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 3 attempts by default),
// honoring Retry-After headers. Context cancellation aborts retries
// immediately.
//
// # Budget
//
// When constructed WithBudget, every completion reserves one unit of the
// daily LLM quota before dialing and refunds it on failure. Health checks
// bypass the budget.
package llm
