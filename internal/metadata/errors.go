package metadata

import "errors"

var (
	// ErrAnalysisFailed indicates the AI service could not analyze the video.
	ErrAnalysisFailed = errors.New("video analysis failed")
	// ErrGenerationFailed indicates a transport or service error while generating metadata.
	ErrGenerationFailed = errors.New("metadata generation failed")
	// ErrEmptyGenerationResult indicates the AI service returned no text.
	ErrEmptyGenerationResult = errors.New("empty response from generation service")
	// ErrMalformedResponse indicates the generated text was not the expected JSON object.
	ErrMalformedResponse = errors.New("malformed generation response")
	// ErrClientUnavailable indicates the client has no backing service configured.
	ErrClientUnavailable = errors.New("metadata client unavailable")
)
