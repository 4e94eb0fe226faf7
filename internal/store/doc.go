// Package store persists pipeline state in SQLite: the video queue with its
// alternating processing/done statuses, analysis records with their review
// workflow graph, resume checkpoints, and per-service daily quota ledgers.
//
// All timestamps are stored as UTC RFC3339Nano strings. Writes that can race
// with worker goroutines go through a small busy-retry wrapper because SQLite
// serializes writers.
package store
