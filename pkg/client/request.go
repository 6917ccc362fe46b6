package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
)

// Terminator is a caller-supplied hook. It is called with a function that
// terminates the request when invoked.
type Terminator func(abort func())

// Request describes one API call.
type Request struct {
	// Method defaults to GET.
	Method string

	// URL is absolute, or relative to the client's base URL.
	URL string

	// Query is merged into any query already present on URL.
	Query url.Values

	// Body is encoded as JSON when non-nil.
	Body any

	Header http.Header

	// Terminator is called once the request is ready to be sent.
	Terminator Terminator

	// Cancel, when set, ties the request to a cancellation token shared with
	// other requests (e.g. all pages of one pagination run).
	Cancel *Cancellation
}

// RequestOption customizes a Request.
type RequestOption func(*Request)

// WithTerminator installs a termination hook.
func WithTerminator(t Terminator) RequestOption {
	return func(r *Request) {
		r.Terminator = t
	}
}

// WithCancellation attaches the request to a cancellation token.
func WithCancellation(c *Cancellation) RequestOption {
	return func(r *Request) {
		r.Cancel = c
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		r.Header.Set(key, value)
	}
}

// Apply runs opts against r.
func (r *Request) Apply(opts ...RequestOption) {
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
}

// Clone returns a copy of r that can be modified without affecting r.
func (r *Request) Clone() *Request {
	c := *r
	if r.Query != nil {
		c.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			c.Query[k] = append([]string(nil), v...)
		}
	}
	if r.Header != nil {
		c.Header = r.Header.Clone()
	}
	return &c
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// FromCache is true when the body was served from the response cache.
	FromCache bool
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return newDecodeError(r.StatusCode, err)
	}
	return nil
}

// Cancellation is a token shared by a sequence of requests. Aborting it
// cancels whichever request is currently attached and every request attached
// afterwards.
type Cancellation struct {
	mu      sync.Mutex
	aborted bool
	cancel  context.CancelFunc
}

// NewCancellation creates a token that has not been aborted.
func NewCancellation() *Cancellation {
	return &Cancellation{}
}

// Abort marks the token and cancels the attached request, if any.
func (c *Cancellation) Abort() {
	c.mu.Lock()
	c.aborted = true
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Aborted reports whether Abort has been called.
func (c *Cancellation) Aborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

// Attach registers a new in-flight operation derived from ctx. The returned
// release function must be called when the operation completes.
func (c *Cancellation) Attach(ctx context.Context) (context.Context, func()) {
	opCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.aborted {
		c.mu.Unlock()
		cancel()
		return opCtx, func() {}
	}
	c.cancel = cancel
	c.mu.Unlock()

	return opCtx, func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
		cancel()
	}
}
