// Package services defines the shared contract for the external model
// collaborators: the failure taxonomy, the retry/backoff helper every
// adapter invokes through, the daily call-budget gate, and the context keys
// that correlate adapter calls with pipeline stages.
//
// Concrete adapters live in the subpackages stt, llm, vision, and commerce.
package services
