// Package daemon coordinates the long-running plugscan process: it enforces
// single-instance execution with a file lock, recovers videos interrupted by
// a previous shutdown, runs the analysis pipeline, and serves the HTTP API
// the CLI talks to.
package daemon
