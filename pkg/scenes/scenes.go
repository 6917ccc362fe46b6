// Package scenes provides access to scene metadata of the Planet scenes API.
//
// Search returns a pagination.Page whose Next and Prev re-run Search with the
// query of the corresponding link.
package scenes

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sternrassler/planet-client-go/pkg/client"
	"github.com/Sternrassler/planet-client-go/pkg/logging"
	"github.com/Sternrassler/planet-client-go/pkg/pagination"
	"github.com/Sternrassler/planet-client-go/pkg/urls"
	"github.com/rs/zerolog"
)

// DefaultType is used when a scene reference or query names no scene type.
const DefaultType = "ortho"

// Ref identifies a scene.
type Ref struct {
	Type string
	ID   string
}

// Scene is the metadata of one scene (a GeoJSON feature).
type Scene struct {
	ID         string         `json:"id"`
	Type       string         `json:"type,omitempty"`
	Geometry   map[string]any `json:"geometry,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Links      map[string]any `json:"_links,omitempty"`
}

// Collection is one page of scene search results.
type Collection struct {
	Type     string            `json:"type,omitempty"`
	Count    int               `json:"count,omitempty"`
	Features []Scene           `json:"features"`
	Links    map[string]string `json:"links,omitempty"`
}

// Query holds common scene search parameters. Use Values to turn it into the
// query accepted by Search.
type Query struct {
	Type        string  `url:"type,omitempty"`
	Count       int     `url:"count,omitempty"`
	Intersects  string  `url:"intersects,omitempty"`
	AcquiredGTE string  `url:"acquired.gte,omitempty"`
	AcquiredLTE string  `url:"acquired.lte,omitempty"`
	CloudCover  float64 `url:"cloud_cover.estimated.lte,omitempty"`
	OrderBy     string  `url:"order_by,omitempty"`
}

// Values encodes q as query parameters.
func (q Query) Values() (url.Values, error) {
	return urls.Encode(q)
}

// Service queries scenes.
type Service struct {
	client pagination.Fetcher
	urls   urls.Builder
	apiKey string
	logger zerolog.Logger

	// AugmentLinks appends the API key to resource links of returned scenes
	// so they can be opened without an Authorization header.
	AugmentLinks bool
}

// New creates a scene service using c for transport. Link augmentation is on.
func New(c *client.Client) *Service {
	svc := NewWithFetcher(c, c.BaseURL(), c.APIKey())
	svc.AugmentLinks = true
	return svc
}

// NewWithFetcher creates a scene service on any Fetcher with URLs rooted at
// base. Link augmentation is off.
func NewWithFetcher(f pagination.Fetcher, base, apiKey string) *Service {
	return &Service{
		client: f,
		urls:   urls.New(base),
		apiKey: apiKey,
		logger: logging.NewLogger("scenes"),
	}
}

// Get fetches metadata for a single scene.
func (s *Service) Get(ctx context.Context, ref Ref, opts ...client.RequestOption) (*Scene, error) {
	if ref.Type == "" {
		ref.Type = DefaultType
	}

	req := &client.Request{Method: http.MethodGet, URL: s.urls.Scenes(ref.Type, ref.ID)}
	req.Apply(opts...)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get scene %s/%s: %w", ref.Type, ref.ID, err)
	}

	var scene Scene
	if err := resp.Decode(&scene); err != nil {
		return nil, err
	}
	if s.AugmentLinks {
		s.augment(&scene)
	}
	return &scene, nil
}

// Search fetches one page of scenes matching query. The "type" parameter
// selects the scene type and is not sent to the API. The returned page can be
// navigated with Next and Prev, which stay on the same scene type.
func (s *Service) Search(ctx context.Context, query url.Values, opts ...client.RequestOption) (*pagination.Page[Collection], error) {
	sceneType := query.Get("type")
	if sceneType == "" {
		sceneType = DefaultType
	}

	params := cloneValues(query)
	params.Del("type")

	req := &client.Request{
		Method: http.MethodGet,
		URL:    s.urls.Scenes(sceneType, ""),
		Query:  params,
	}
	req.Apply(opts...)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s scenes: %w", sceneType, err)
	}

	page, err := pagination.NewPage(resp.Body, s.followType(sceneType))
	if err != nil {
		return nil, err
	}

	if s.AugmentLinks {
		for i := range page.Data.Features {
			s.augment(&page.Data.Features[i])
		}
	}

	s.logger.Debug().
		Str("type", sceneType).
		Int("scenes", len(page.Data.Features)).
		Bool("has_next", page.HasNext()).
		Msg("Scene page fetched")

	return page, nil
}

// followType returns a Search factory that keeps sceneType for links whose
// query does not name one.
func (s *Service) followType(sceneType string) pagination.Factory[Collection] {
	return func(ctx context.Context, query url.Values, opts ...client.RequestOption) (*pagination.Page[Collection], error) {
		if query.Get("type") == "" {
			query = cloneValues(query)
			query.Set("type", sceneType)
		}
		return s.Search(ctx, query, opts...)
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for key, values := range v {
		out[key] = append([]string(nil), values...)
	}
	return out
}

// augment adds api_key to every link in the scene's properties.links and
// _links.
func (s *Service) augment(scene *Scene) {
	if s.apiKey == "" {
		return
	}
	if links, ok := scene.Properties["links"].(map[string]any); ok {
		s.augmentLinks(links)
	}
	s.augmentLinks(scene.Links)
}

func (s *Service) augmentLinks(links map[string]any) {
	for name, value := range links {
		link, ok := value.(string)
		if !ok || link == "" {
			continue
		}
		augmented, err := urls.AddQuery(link, "api_key", s.apiKey)
		if err != nil {
			s.logger.Debug().Err(err).Str("link", name).Msg("Skipping unparseable scene link")
			continue
		}
		links[name] = augmented
	}
}
