package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/Sternrassler/planet-client-go/pkg/client"
	"github.com/Sternrassler/planet-client-go/pkg/urls"
)

var (
	// ErrNoPrevPage is returned by Prev on a page without a prev link.
	ErrNoPrevPage = errors.New("page has no prev link")

	// ErrNoNextPage is returned by Next on a page without a next link.
	ErrNoNextPage = errors.New("page has no next link")

	// ErrNoFactory is returned when following a link on a page built without
	// a factory.
	ErrNoFactory = errors.New("page has no factory")
)

// Factory fetches a page for the given query. Options are supplied by the
// caller of Next or Prev.
type Factory[T any] func(ctx context.Context, query url.Values, opts ...client.RequestOption) (*Page[T], error)

// Page is one fetched response with navigation to its neighbours. Links are
// captured when the page is built.
type Page[T any] struct {
	// Data is the decoded response body.
	Data T

	PrevLink string
	NextLink string

	factory Factory[T]
}

type pageLinks struct {
	Links struct {
		Prev string `json:"prev"`
		Next string `json:"next"`
	} `json:"links"`
}

// NewPage decodes body into a Page. The factory is invoked by Next and Prev
// and is expected to fetch and wrap the adjacent page.
func NewPage[T any](body []byte, factory Factory[T]) (*Page[T], error) {
	var data T
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}

	var links pageLinks
	if err := json.Unmarshal(body, &links); err != nil {
		return nil, fmt.Errorf("decode page links: %w", err)
	}

	return &Page[T]{
		Data:     data,
		PrevLink: links.Links.Prev,
		NextLink: links.Links.Next,
		factory:  factory,
	}, nil
}

// HasPrev reports whether the page carries a prev link.
func (p *Page[T]) HasPrev() bool {
	return p.PrevLink != ""
}

// HasNext reports whether the page carries a next link.
func (p *Page[T]) HasNext() bool {
	return p.NextLink != ""
}

// Prev fetches the previous page.
func (p *Page[T]) Prev(ctx context.Context, opts ...client.RequestOption) (*Page[T], error) {
	if !p.HasPrev() {
		return nil, ErrNoPrevPage
	}
	return p.follow(ctx, p.PrevLink, opts)
}

// Next fetches the next page.
func (p *Page[T]) Next(ctx context.Context, opts ...client.RequestOption) (*Page[T], error) {
	if !p.HasNext() {
		return nil, ErrNoNextPage
	}
	return p.follow(ctx, p.NextLink, opts)
}

func (p *Page[T]) follow(ctx context.Context, link string, opts []client.RequestOption) (*Page[T], error) {
	if p.factory == nil {
		return nil, ErrNoFactory
	}
	query, err := urls.ParseQuery(link)
	if err != nil {
		return nil, err
	}
	return p.factory(ctx, query, opts...)
}
