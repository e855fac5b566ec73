// Package apperr holds the error kinds shared by the fetch and detection
// pipeline and the rendering of those errors at the user-facing boundary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNoTranscript      = errors.New("no transcript available")
	ErrAuthRequired      = errors.New("authentication required")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrMissingCredential = errors.New("missing credential")
)

// UpstreamError is a non-success response (or transport failure) from a
// remote provider. Status is 0 when no HTTP response was received.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// UserMessage renders err as the single line shown to a user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrInvalidCredential):
		return "Invalid API key. Please check your OpenRouter API key."
	case errors.Is(err, ErrMissingCredential):
		return "Please configure your OpenRouter API key (fallacycheck key set <key>)."
	case errors.Is(err, ErrNoTranscript):
		return "This video has no captions available"
	case errors.Is(err, ErrAuthRequired):
		return "YouTube authentication required: set YOUTUBE_COOKIE or YOUTUBE_SAPISID"
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.Error()
	}
	return err.Error()
}
