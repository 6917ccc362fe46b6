package pagination

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/Sternrassler/planet-client-go/pkg/client"
	"github.com/Sternrassler/planet-client-go/pkg/logging"
	"github.com/rs/zerolog"
)

// Fetcher performs one API call per invocation. *client.Client implements it.
type Fetcher interface {
	Do(ctx context.Context, req *client.Request) (*client.Response, error)
}

var (
	// ErrMissingItems is returned when a page body lacks the items field.
	ErrMissingItems = errors.New("page body has no items field")

	// ErrMalformedPage is returned when a page body is not a JSON object.
	ErrMalformedPage = errors.New("malformed page body")
)

// Unlimited disables the item limit.
const Unlimited = -1

// Option configures a pagination run.
type Option func(*settings)

type settings struct {
	limit      int
	terminator client.Terminator
	logger     zerolog.Logger
}

// WithLimit caps the number of delivered items. Negative values mean no limit.
func WithLimit(n int) Option {
	return func(s *settings) {
		s.limit = n
	}
}

// WithTerminator installs a termination hook. It is called once per run with
// a function that stops the run and aborts the in-flight request. Without
// this option the request's own Terminator is used.
func WithTerminator(t client.Terminator) Option {
	return func(s *settings) {
		s.terminator = t
	}
}

// WithLogger overrides the run's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		limit:  Unlimited,
		logger: logging.NewLogger("pagination"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// pageBody is the part of a page body the pager understands.
type pageBody struct {
	Links struct {
		Next string `json:"_next"`
	} `json:"_links"`
}

// runState is owned by exactly one run.
type runState struct {
	count int
	pages int
	token *client.Cancellation
}

// Pages returns a lazy sequence of pages. Each iteration of the sequence is an
// independent run: the first request is issued when iteration starts, and
// page N+1 is only requested after the consumer has taken page N.
//
// Every yielded slice has already been truncated to the limit. A failure is
// yielded once, with a nil slice, and ends the sequence. The sequence ends
// without error when the limit is reached, when a page has no next link, or
// when the run was aborted between pages.
func Pages[T any](ctx context.Context, f Fetcher, req client.Request, key string, opts ...Option) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		s := newSettings(opts)
		logger := s.logger.With().Str("key", key).Logger()

		state := &runState{token: client.NewCancellation()}
		terminator := s.terminator
		if terminator == nil {
			terminator = req.Terminator
		}
		if terminator != nil {
			terminator(state.token.Abort)
		}

		// The caller's request value is never modified.
		current := req.Clone()
		current.Terminator = nil
		current.Cancel = state.token

		start := time.Now()
		outcome := "error"
		defer func() {
			paginationRunsTotal.WithLabelValues(outcome).Inc()
			logger.Info().
				Str("outcome", outcome).
				Int("pages", state.pages).
				Int("items", state.count).
				Dur("duration", time.Since(start)).
				Msg("Pagination run finished")
		}()

		for {
			items, next, err := fetchPage[T](ctx, f, current, key)
			if err == nil && state.token.Aborted() {
				// The response raced the abort; its data must not be delivered.
				err = fmt.Errorf("page %d: %w", state.pages+1, client.ErrAborted)
			}
			if err != nil {
				if errors.Is(err, client.ErrAborted) {
					outcome = "aborted"
				}
				logger.Debug().Err(err).Int("page", state.pages+1).Msg("Page fetch failed")
				yield(nil, err)
				return
			}

			state.pages++
			done := false
			if s.limit >= 0 && state.count+len(items) >= s.limit {
				items = items[:s.limit-state.count]
				done = true
			}
			state.count += len(items)

			paginationPagesTotal.Inc()
			paginationItemsTotal.Add(float64(len(items)))
			logger.Debug().
				Int("page", state.pages).
				Int("items", len(items)).
				Int("total", state.count).
				Bool("has_next", next != "").
				Msg("Page fetched")

			if !yield(items, nil) {
				outcome = "stopped"
				return
			}

			switch {
			case state.token.Aborted():
				outcome = "aborted"
				return
			case done:
				outcome = "limit"
				return
			case next == "":
				outcome = "complete"
				return
			}

			// Continuation requests follow the link as-is: method, body and
			// query of the initial request do not carry over.
			current = &client.Request{
				Method: "GET",
				URL:    next,
				Header: current.Header,
				Cancel: state.token,
			}
		}
	}
}

// Run walks every page of a paginated resource. Items are read from the
// body field named key.
//
// When onPage is nil all items are accumulated and returned (an empty, non-nil
// slice when there are none). Otherwise onPage receives every page in order,
// including empty ones, and Run returns a nil slice. The only page withheld
// from onPage is an empty first page that is also the last one, so a resource
// with no items never triggers the callback. An error from onPage stops the
// run and is returned.
//
// On failure no items are returned, even if some pages were already delivered
// to onPage.
func Run[T any](ctx context.Context, f Fetcher, req client.Request, key string, onPage func([]T) error, opts ...Option) ([]T, error) {
	var all []T
	if onPage == nil {
		all = []T{}
	}

	pages := 0
	heldEmpty := false
	for items, err := range Pages[T](ctx, f, req, key, opts...) {
		if err != nil {
			return nil, err
		}
		pages++
		if onPage == nil {
			all = append(all, items...)
			continue
		}
		if pages == 1 && len(items) == 0 {
			heldEmpty = true
			continue
		}
		if heldEmpty {
			heldEmpty = false
			if err := onPage([]T{}); err != nil {
				return nil, err
			}
		}
		if err := onPage(items); err != nil {
			return nil, err
		}
	}

	return all, nil
}

// fetchPage performs one request and extracts the items and next link.
func fetchPage[T any](ctx context.Context, f Fetcher, req *client.Request, key string) ([]T, string, error) {
	resp, err := f.Do(ctx, req)
	if err != nil {
		return nil, "", err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &fields); err != nil || fields == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrMalformedPage, req.URL)
	}

	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, "", fmt.Errorf("%w %q: %s", ErrMissingItems, key, req.URL)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, "", fmt.Errorf("decode %q items: %w", key, err)
	}

	var body pageBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, "", fmt.Errorf("decode page links: %w", err)
	}

	return items, body.Links.Next, nil
}
