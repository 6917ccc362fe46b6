package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		kind    ErrorKind
		message string
		hasBody bool
	}{
		{http.StatusBadRequest, `{"message":"invalid filter"}`, KindBadRequest, "invalid filter", true},
		{http.StatusUnauthorized, ``, KindUnauthorized, "Unauthorized", false},
		{http.StatusForbidden, `{"general":[]}`, KindForbidden, "Forbidden", true},
		{http.StatusNotFound, `<html>`, KindUnexpectedResponse, "Not Found", false},
		{http.StatusTooManyRequests, `{}`, KindUnexpectedResponse, "Too Many Requests", true},
		{599, ``, KindUnexpectedResponse, "status 599", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := newStatusError(tt.status, []byte(tt.body))
			if err.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", err.Kind, tt.kind)
			}
			if err.Message != tt.message {
				t.Errorf("Message = %q, want %q", err.Message, tt.message)
			}
			if (err.Body != nil) != tt.hasBody {
				t.Errorf("Body = %s, want present=%v", err.Body, tt.hasBody)
			}
		})
	}
}

func TestResponseError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ResponseError
		want string
	}{
		{
			name: "status",
			err:  newStatusError(http.StatusBadRequest, []byte(`{"message":"bad"}`)),
			want: "planet bad_request (status 400): bad",
		},
		{
			name: "aborted",
			err:  newAbortedError(context.Canceled),
			want: "planet aborted: request terminated: context canceled",
		},
		{
			name: "decode",
			err:  newDecodeError(200, errors.New("eof")),
			want: "planet unexpected_response (status 200): trouble parsing response body: eof",
		},
		{
			name: "bare",
			err:  &ResponseError{Kind: KindForbidden, Message: "nope"},
			want: "planet forbidden: nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponseError_Is(t *testing.T) {
	err := fmt.Errorf("get item: %w", newStatusError(http.StatusUnauthorized, nil))

	if !errors.Is(err, ErrUnauthorized) {
		t.Error("Expected ErrUnauthorized")
	}
	if errors.Is(err, ErrForbidden) {
		t.Error("Did not expect ErrForbidden")
	}
	if KindOf(err) != KindUnauthorized {
		t.Errorf("KindOf() = %q", KindOf(err))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf() of plain error should be empty")
	}

	aborted := newAbortedError(context.DeadlineExceeded)
	if !errors.Is(aborted, ErrAborted) || !errors.Is(aborted, context.DeadlineExceeded) {
		t.Errorf("aborted error does not match: %v", aborted)
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{ErrorClassClient, false},
		{ErrorClassServer, true},
		{ErrorClassRateLimit, true},
		{ErrorClassNetwork, true},
		{"", false},
	}

	for _, tt := range tests {
		if got := shouldRetry(tt.class); got != tt.want {
			t.Errorf("shouldRetry(%q) = %v, want %v", tt.class, got, tt.want)
		}
	}
}
