package services

import (
	"errors"
	"fmt"
	"strings"

	"plugscan/internal/store"
)

var (
	// ErrTransient marks failures that are worth retrying: network hiccups,
	// 5xx responses from model services, subprocess crashes.
	ErrTransient = errors.New("transient failure")
	// ErrPermanentInput marks failures caused by the video itself, such as a
	// missing media file or an unreadable audio track. Retrying cannot help.
	ErrPermanentInput = errors.New("permanent input failure")
	// ErrQuotaExhausted marks calls refused because the daily budget for the
	// service has been spent.
	ErrQuotaExhausted = errors.New("quota exhausted")
	ErrValidation     = errors.New("validation error")
	ErrConfiguration  = errors.New("configuration error")
	ErrNotFound       = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a stage error to the video status the pipeline manager
// should persist after the stage fails.
func FailureStatus(err error) store.Status {
	switch {
	case errors.Is(err, ErrQuotaExhausted):
		return store.StatusQuotaExhausted
	default:
		return store.StatusFailed
	}
}

// Retryable reports whether the error is classified as transient. Permanent
// input errors, validation errors, and quota exhaustion are never retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanentInput) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConfiguration) || errors.Is(err, ErrQuotaExhausted) ||
		errors.Is(err, ErrNotFound) {
		return false
	}
	return true
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
