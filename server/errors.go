package server

import (
	"errors"
	"net/http"

	"github.com/poiesic/docrag/core"
)

var (
	// ErrServiceRequired is returned when a server is created without a service.
	ErrServiceRequired = errors.New("service required")
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// statusFor maps an error's kind onto an HTTP status.
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindInvalidInput, core.KindInvalidConfiguration:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindEmbeddingProvider, core.KindLLMSynthesis:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
