// Package pipeline advances videos through the analysis stages.
//
// The Manager polls the store, claims the oldest actionable video, and runs
// it through the stage matching its status: transcribe, detect, analyze,
// score. A bounded worker pool processes multiple videos at once, each
// in-flight video heartbeats while its stage runs, and videos whose worker
// died are rolled back to the start of the interrupted stage and reclaimed.
//
// Every stage checkpoints its output before the status advances, so a
// restart resumes from the last completed step instead of repaying for
// transcription or model calls already made. Terminal videos shed their
// checkpoints; quota-parked and failed videos keep them so a retry is
// cheap.
package pipeline
