package api

import "fmt"

type (
	// UpstreamError means the backend rejected the request or could not reach
	// the remote media resource. The message is retry guidance for display;
	// the detail is kept for logs.
	UpstreamError struct {
		detail string
	}

	// StateError means the backend has no active submission matching the
	// request, e.g. a format selection for a link it no longer tracks.
	StateError struct {
		detail string
	}

	// FailedRequestError wraps a non-OK HTTP response from the backend.
	FailedRequestError struct {
		httpCode int
		message  string
	}

	backendError struct {
		Error string `json:"error"`
	}
)

func (err *UpstreamError) Error() string {
	return fmt.Sprintf("backend could not process the request: %s", err.detail)
}

func (err *StateError) Error() string {
	return fmt.Sprintf("no matching submission on the backend: %s", err.detail)
}

func (err *FailedRequestError) Error() string {
	return fmt.Sprintf("request failure (HTTP %d): %s", err.httpCode, err.message)
}
