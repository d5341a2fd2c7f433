package core

import (
	"errors"
	"fmt"
	"time"
)

// Error codes
const (
	ErrCodePositionInvalid   = "POSITION_INVALID"
	ErrCodeNoCandidate       = "NO_CANDIDATE"
	ErrCodeRecoveryExhausted = "RECOVERY_EXHAUSTED"
	ErrCodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInvalidContent    = "INVALID_CONTENT_TYPE"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeCaptureNotFound   = "CAPTURE_NOT_FOUND"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
)

// ErrNoCandidate means no source produced usable data
var ErrNoCandidate = errors.New("no candidate position available")

// PositionInvalidError is a single candidate's validation failure
type PositionInvalidError struct {
	Reason string
}

func (e *PositionInvalidError) Error() string {
	return "position invalid: " + e.Reason
}

// RecoveryExhaustedError is terminal: every candidate was invalid after the retry
type RecoveryExhaustedError struct {
	Diagnostic string
	Attempts   int
}

func (e *RecoveryExhaustedError) Error() string {
	return fmt.Sprintf("recovery exhausted after %d vision attempts: %s", e.Attempts, e.Diagnostic)
}

// EngineUnavailableError wraps an evaluation collaborator failure
type EngineUnavailableError struct {
	Err error
}

func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("engine unavailable: %v", e.Err)
}

func (e *EngineUnavailableError) Unwrap() error {
	return e.Err
}

// RateLimitedError carries the remaining cool-down
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %ds", e.RetryAfterSeconds())
}

// RetryAfterSeconds rounds the remaining wait up to whole seconds
func (e *RateLimitedError) RetryAfterSeconds() int {
	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

// ErrorCode maps an error from the core taxonomy to its API code
func ErrorCode(err error) string {
	var (
		invalid   *PositionInvalidError
		exhausted *RecoveryExhaustedError
		engine    *EngineUnavailableError
		limited   *RateLimitedError
	)
	switch {
	case errors.As(err, &limited):
		return ErrCodeRateLimited
	case errors.As(err, &exhausted):
		return ErrCodeRecoveryExhausted
	case errors.As(err, &engine):
		return ErrCodeEngineUnavailable
	case errors.As(err, &invalid):
		return ErrCodePositionInvalid
	case errors.Is(err, ErrNoCandidate):
		return ErrCodeNoCandidate
	default:
		return ErrCodeInternalError
	}
}
