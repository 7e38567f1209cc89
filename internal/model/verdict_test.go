package model

import (
	"math"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		label string
		want  Status
		ok    bool
	}{
		{"SUPPORTED", StatusSupported, true},
		{"supported", StatusSupported, true},
		{"  Partially Supported ", StatusPartiallySupported, true},
		{"partially-supported", StatusPartiallySupported, true},
		{"CONTRADICTED", StatusContradicted, true},
		{"Unverifiable", StatusUnverifiable, true},
		{"MOSTLY_SUPPORTED", "", false},
		{"true", "", false},
		{"", "", false},
		{"refuted", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := ParseStatus(tt.label)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseStatus(%q) = (%q, %v), want (%q, %v)", tt.label, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.5, 0.5},
		{-0.2, 0},
		{1.7, 1},
		{0, 0},
		{1, 1},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		if got := ClampConfidence(tt.in); got != tt.want {
			t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewStatusCounts_AllKeysPresent(t *testing.T) {
	counts := NewStatusCounts()
	if len(counts) != 4 {
		t.Fatalf("Expected 4 statuses, got %d", len(counts))
	}
	for _, s := range AllStatuses {
		if v, ok := counts[s]; !ok || v != 0 {
			t.Errorf("Expected %s present at 0, got %d (present=%v)", s, v, ok)
		}
	}
}

func TestFetchError_Retryable(t *testing.T) {
	tests := []struct {
		err       FetchError
		retryable bool
	}{
		{FetchError{Kind: FetchTimeout}, true},
		{FetchError{Kind: FetchHTTPError, StatusCode: 503}, true},
		{FetchError{Kind: FetchHTTPError, StatusCode: 500}, true},
		{FetchError{Kind: FetchHTTPError, StatusCode: 429}, true},
		{FetchError{Kind: FetchHTTPError, StatusCode: 0}, true},
		{FetchError{Kind: FetchHTTPError, StatusCode: 404}, false},
		{FetchError{Kind: FetchBlocked, StatusCode: 403}, false},
		{FetchError{Kind: FetchBlocked, StatusCode: 401}, false},
		{FetchError{Kind: FetchEmpty}, false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := tt.err.Retryable(); got != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}
