package ai

import "errors"

var (
	// ErrEmptyResponse is returned when a model answers without content.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrResultCount is returned when an embedding response does not hold
	// one vector per input text.
	ErrResultCount = errors.New("embedding count does not match input count")
)
