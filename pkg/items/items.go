// Package items provides access to item metadata of the Planet Data API.
package items

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/planet-client-go/pkg/client"
	"github.com/Sternrassler/planet-client-go/pkg/logging"
	"github.com/Sternrassler/planet-client-go/pkg/pagination"
	"github.com/Sternrassler/planet-client-go/pkg/urls"
	"github.com/rs/zerolog"
)

// ItemsKey is the body field holding the items of a search page.
const ItemsKey = "features"

// ErrInvalidSearch is returned when a search has neither filter and types nor a saved search id.
var ErrInvalidSearch = errors.New("expected both filter and item types or a search id")

// Item is a single catalog item (a GeoJSON feature).
type Item struct {
	ID         string         `json:"id"`
	Type       string         `json:"type,omitempty"`
	Geometry   map[string]any `json:"geometry,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Links      map[string]any `json:"_links,omitempty"`
}

// Query holds the optional query parameters of a search.
type Query struct {
	PageSize int    `url:"_page_size,omitempty"`
	Sort     string `url:"_sort,omitempty"`
}

// SearchOptions describes an item search. Either Filter and Types, or ID,
// must be set.
type SearchOptions struct {
	// Types lists item type identifiers to search.
	Types []string

	// Filter is the search filter, encoded as JSON.
	Filter any

	// ID selects a previously saved search instead of Filter and Types.
	ID string

	Query Query

	// Limit caps the number of returned items (nil for no limit).
	Limit *int

	// Each, when set, is called once per page instead of accumulating items.
	Each func([]Item) error

	Terminator client.Terminator
}

// Service queries items.
type Service struct {
	client pagination.Fetcher
	urls   urls.Builder
	logger zerolog.Logger
}

// New creates an item service using c for transport.
func New(c *client.Client) *Service {
	return NewWithFetcher(c, c.BaseURL())
}

// NewWithFetcher creates an item service on any Fetcher with URLs rooted at base.
func NewWithFetcher(f pagination.Fetcher, base string) *Service {
	return &Service{
		client: f,
		urls:   urls.New(base),
		logger: logging.NewLogger("items"),
	}
}

// Get fetches metadata for a single item.
func (s *Service) Get(ctx context.Context, itemType, id string, opts ...client.RequestOption) (*Item, error) {
	req := &client.Request{Method: http.MethodGet, URL: s.urls.Items(itemType, id)}
	req.Apply(opts...)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get item %s/%s: %w", itemType, id, err)
	}

	var item Item
	if err := resp.Decode(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Search walks all pages of an item search. Items are returned when
// opts.Each is nil; otherwise they are handed to Each page by page and the
// returned slice is nil.
func (s *Service) Search(ctx context.Context, opts SearchOptions) ([]Item, error) {
	query, err := urls.Encode(opts.Query)
	if err != nil {
		return nil, err
	}

	req := client.Request{Query: query}
	switch {
	case opts.Filter != nil && len(opts.Types) > 0:
		req.Method = http.MethodPost
		req.URL = s.urls.QuickSearch()
		req.Body = map[string]any{
			"filter":     opts.Filter,
			"item_types": opts.Types,
		}
	case opts.ID != "":
		req.Method = http.MethodGet
		req.URL = s.urls.Searches(opts.ID, "results")
	default:
		return nil, ErrInvalidSearch
	}

	s.logger.Debug().
		Str("method", req.Method).
		Strs("types", opts.Types).
		Str("search_id", opts.ID).
		Msg("Searching items")

	pagerOpts := []pagination.Option{
		pagination.WithTerminator(opts.Terminator),
		pagination.WithLogger(s.logger),
	}
	if opts.Limit != nil {
		pagerOpts = append(pagerOpts, pagination.WithLimit(*opts.Limit))
	}

	return pagination.Run(ctx, s.client, req, ItemsKey, opts.Each, pagerOpts...)
}
