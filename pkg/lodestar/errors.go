package lodestar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// FallbackMessage is shown when a failed response carries no usable detail.
const FallbackMessage = "Something went wrong. Please try again."

// ErrNoRefreshToken is returned by Refresh when no refresh token is available.
var ErrNoRefreshToken = errors.New("lodestar: no refresh token")

// APIError is a non-2xx response from the API. Message is the human-readable
// detail extracted from the response body, falling back to the HTTP status
// text when the body has none.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Method     string `json:"-"`
	Path       string `json:"-"`
	Body       []byte `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lodestar: %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// newAPIError builds an APIError from a failed response body.
func newAPIError(method, path string, statusCode int, body []byte) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Message:    ExtractMessage(statusCode, body),
		Method:     method,
		Path:       path,
		Body:       body,
	}
}

// errorPayload matches the shapes the API uses for failure bodies. The error
// field is either a bare string or an object with its own message.
type errorPayload struct {
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Error   json.RawMessage `json:"error"`
}

// ExtractMessage pulls a human-readable message out of an error response
// body. Candidates are tried in order:
//
//  1. the "message" field
//  2. the "detail" field
//  3. the "error" field, as a string or as an object with a "message"
//  4. the whole body, when it is a JSON string
//  5. the raw body text, when it is not JSON at all
//  6. the HTTP status text
//
// When every candidate comes up empty the generic FallbackMessage is
// returned, so callers always have something to show.
func ExtractMessage(statusCode int, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 {
		var payload errorPayload
		if err := json.Unmarshal(trimmed, &payload); err == nil {
			if payload.Message != "" {
				return payload.Message
			}
			if payload.Detail != "" {
				return payload.Detail
			}
			if msg := errorField(payload.Error); msg != "" {
				return msg
			}
		}

		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			if s != "" {
				return s
			}
		} else if !json.Valid(trimmed) {
			return string(trimmed)
		}
	}

	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return FallbackMessage
}

func errorField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested.Message
	}
	return ""
}
