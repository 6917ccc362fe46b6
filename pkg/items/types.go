package items

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Sternrassler/planet-client-go/pkg/client"
	"github.com/Sternrassler/planet-client-go/pkg/pagination"
)

// ItemTypesKey is the body field holding item types.
const ItemTypesKey = "item_types"

// ItemType describes a kind of item in the catalog.
type ItemType struct {
	ID                  string         `json:"id"`
	DisplayName         string         `json:"display_name,omitempty"`
	DisplayDescription  string         `json:"display_description,omitempty"`
	SupportedAssetTypes []string       `json:"supported_asset_types,omitempty"`
	Links               map[string]any `json:"_links,omitempty"`
}

// TypesOptions controls listing of item types.
type TypesOptions struct {
	Limit      *int
	Each       func([]ItemType) error
	Terminator client.Terminator
}

// Types lists every item type.
func (s *Service) Types(ctx context.Context, opts TypesOptions) ([]ItemType, error) {
	req := client.Request{Method: http.MethodGet, URL: s.urls.ItemTypes("")}

	pagerOpts := []pagination.Option{
		pagination.WithTerminator(opts.Terminator),
		pagination.WithLogger(s.logger),
	}
	if opts.Limit != nil {
		pagerOpts = append(pagerOpts, pagination.WithLimit(*opts.Limit))
	}

	return pagination.Run(ctx, s.client, req, ItemTypesKey, opts.Each, pagerOpts...)
}

// Type fetches a single item type.
func (s *Service) Type(ctx context.Context, id string, opts ...client.RequestOption) (*ItemType, error) {
	req := &client.Request{Method: http.MethodGet, URL: s.urls.ItemTypes(id)}
	req.Apply(opts...)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get item type %s: %w", id, err)
	}

	var t ItemType
	if err := resp.Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}
