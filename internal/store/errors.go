package store

import "errors"

var (
	// ErrIllegalTransition is returned when a record transition request does
	// not match an edge of the review workflow graph.
	ErrIllegalTransition = errors.New("illegal record transition")
	// ErrQuotaExceeded is returned by quota reservation when the daily budget
	// for a service has been spent.
	ErrQuotaExceeded = errors.New("daily quota exceeded")
	// ErrCheckpointRegression is returned when a step completion would move
	// the checkpoint pointer backwards.
	ErrCheckpointRegression = errors.New("checkpoint step regression")
)
