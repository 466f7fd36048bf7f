package wapi

import "fmt"

// The WAPI reports failures with a JSON error document and a conventional
// status code. Each category gets its own error type so that callers can
// dispatch with errors.As instead of string matching. All types carry the
// raw response body for diagnostics.

// AuthenticationError indicates the grid rejected the credentials or the
// session, including a 401 that persisted after one re-authentication.
type AuthenticationError struct {
	StatusCode int
	Body       string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Body)
}

// ConflictError indicates the object to create already exists (409).
type ConflictError struct {
	Body string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("object already exists: %s", e.Body)
}

// NotFoundError indicates the referenced object does not exist (404).
type NotFoundError struct {
	Body string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object not found: %s", e.Body)
}

// PermissionError indicates the authenticated user lacks the required
// grid permission (403).
type PermissionError struct {
	Body string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Body)
}

// TransientServerError indicates a 429 or 5xx that persisted after the
// transport exhausted its retries.
type TransientServerError struct {
	StatusCode int
	Body       string
}

func (e *TransientServerError) Error() string {
	return fmt.Sprintf("grid unavailable (status %d): %s", e.StatusCode, e.Body)
}

// MalformedResponseError indicates the grid returned a 2xx response whose
// body does not have the shape the operation requires.
type MalformedResponseError struct {
	Message string
	Body    string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed WAPI response: %s: %s", e.Message, e.Body)
}

// statusError maps a non-2xx, non-401 status code to the error taxonomy.
func statusError(statusCode int, body string) error {
	switch statusCode {
	case 403:
		return &PermissionError{Body: body}
	case 404:
		return &NotFoundError{Body: body}
	case 409:
		return &ConflictError{Body: body}
	}
	if statusCode == 429 || statusCode >= 500 {
		return &TransientServerError{StatusCode: statusCode, Body: body}
	}
	return fmt.Errorf("WAPI request failed (status %d): %s", statusCode, body)
}
