package service

import (
	"errors"
	"fmt"
)

var (
	// ErrExtractionFailed means the direct source is unusable for this id.
	ErrExtractionFailed = errors.New("direct extraction failed")
	// ErrMirrorUnavailable means one mirror endpoint could not serve metadata.
	ErrMirrorUnavailable = errors.New("mirror unavailable")
	// ErrUpstream means a candidate's byte fetch failed after a URL was obtained.
	ErrUpstream = errors.New("upstream fetch failed")
	// ErrUpstreamStalled means a candidate's body produced no bytes within the
	// upstream timeout.
	ErrUpstreamStalled = errors.New("upstream stalled")
	// ErrNoSourceAvailable means every tier was exhausted.
	ErrNoSourceAvailable = errors.New("no working source found")
	// ErrMalformedRequest means required input was missing or invalid.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrNotFound is returned by stores for unknown ids.
	ErrNotFound = errors.New("not found")
)

// UpstreamError reports the status of a rejected candidate fetch.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream fetch failed: status %d", e.StatusCode)
}

// Unwrap lets errors.Is match ErrUpstream.
func (e *UpstreamError) Unwrap() error { return ErrUpstream }
