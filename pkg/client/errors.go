package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the caller-facing classification of a failed request.
type ErrorKind string

const (
	// KindBadRequest is returned for status 400.
	KindBadRequest ErrorKind = "bad_request"

	// KindUnauthorized is returned for status 401.
	KindUnauthorized ErrorKind = "unauthorized"

	// KindForbidden is returned for status 403.
	KindForbidden ErrorKind = "forbidden"

	// KindUnexpectedResponse covers any other non-success status and bodies
	// that cannot be decoded.
	KindUnexpectedResponse ErrorKind = "unexpected_response"

	// KindAborted is returned when a request is terminated by its caller.
	KindAborted ErrorKind = "aborted"
)

// Sentinel errors matching each ErrorKind with errors.Is.
var (
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrUnexpectedResponse = errors.New("unexpected response")
	ErrAborted            = errors.New("request aborted")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

var kindSentinels = map[ErrorKind]error{
	KindBadRequest:         ErrBadRequest,
	KindUnauthorized:       ErrUnauthorized,
	KindForbidden:          ErrForbidden,
	KindUnexpectedResponse: ErrUnexpectedResponse,
	KindAborted:            ErrAborted,
}

// ResponseError is the error returned for classified request failures.
type ResponseError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string

	// Body is the raw response body when it was valid JSON.
	Body json.RawMessage

	Err error
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	if e.StatusCode > 0 {
		if e.Err != nil {
			return fmt.Sprintf("planet %s (status %d): %s: %v", e.Kind, e.StatusCode, e.Message, e.Err)
		}
		return fmt.Sprintf("planet %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("planet %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("planet %s: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ResponseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *ResponseError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf returns the ErrorKind carried by err, or "" when err is not a ResponseError.
func KindOf(err error) ErrorKind {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.Kind
	}
	return ""
}

// newAbortedError builds the error surfaced for terminated requests.
func newAbortedError(err error) *ResponseError {
	return &ResponseError{
		Kind:    KindAborted,
		Message: "request terminated",
		Err:     err,
	}
}

// newStatusError classifies a non-success response.
func newStatusError(statusCode int, body []byte) *ResponseError {
	e := &ResponseError{
		StatusCode: statusCode,
		Message:    http.StatusText(statusCode),
	}

	switch statusCode {
	case http.StatusBadRequest:
		e.Kind = KindBadRequest
	case http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case http.StatusForbidden:
		e.Kind = KindForbidden
	default:
		e.Kind = KindUnexpectedResponse
	}

	if json.Valid(body) {
		e.Body = json.RawMessage(body)
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
			e.Message = payload.Message
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("status %d", statusCode)
	}

	return e
}

// newDecodeError is returned when a success response body is not valid JSON.
func newDecodeError(statusCode int, err error) *ResponseError {
	return &ResponseError{
		Kind:       KindUnexpectedResponse,
		StatusCode: statusCode,
		Message:    "trouble parsing response body",
		Err:        err,
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx are not retried, apart from 429 which is classed as rate_limit
		return false
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
