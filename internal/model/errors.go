package model

import (
	"errors"
	"fmt"
)

// ErrJudgmentUnavailable is returned when every judge call in a run failed
var ErrJudgmentUnavailable = errors.New("judgment capability unavailable")

// ExtractionError means no verifiable claims could be obtained from the report
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// FetchErrorKind classifies why a source could not be retrieved
type FetchErrorKind string

const (
	FetchTimeout   FetchErrorKind = "timeout"
	FetchHTTPError FetchErrorKind = "http_error"
	FetchBlocked   FetchErrorKind = "blocked" // paywall, auth wall, robots.txt
	FetchEmpty     FetchErrorKind = "empty"
)

// FetchError is a per-URL failure recorded on a Source
type FetchError struct {
	Kind       FetchErrorKind `json:"kind"`
	URL        string         `json:"url"`
	StatusCode int            `json:"status_code,omitempty"`
	Message    string         `json:"message"`
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Kind, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.URL, e.Message)
}

// Retryable reports whether the failure is transient
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FetchTimeout:
		return true
	case FetchHTTPError:
		// Status 0 means a transport failure (refused, reset, DNS)
		return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
	default:
		return false
	}
}

// InvalidJudgmentError means the judge answered with an unusable label
type InvalidJudgmentError struct {
	ClaimID string
	Label   string
}

func (e *InvalidJudgmentError) Error() string {
	return fmt.Sprintf("claim %s: invalid judgment status %q", e.ClaimID, e.Label)
}

// PipelineError wraps any fatal condition with the stage it happened in
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
