package scenes

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/Sternrassler/planet-client-go/internal/testutil"
	"github.com/Sternrassler/planet-client-go/pkg/client"
	"github.com/Sternrassler/planet-client-go/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, mock *testutil.MockCatalog) *Service {
	t.Helper()

	cfg := client.DefaultConfig("secret")
	cfg.BaseURL = mock.URL()
	cfg.RateLimit = 0
	cfg.MaxRetries = 1

	c, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return New(c)
}

func scene(id string) any {
	return map[string]any{
		"id":   id,
		"type": "Feature",
		"_links": map[string]any{
			"_self": "https://api.planet.com/v0/scenes/ortho/" + id,
		},
		"properties": map[string]any{
			"links": map[string]any{
				"thumbnail": "https://api.planet.com/v0/scenes/ortho/" + id + "/thumb?size=sm",
			},
		},
	}
}

func TestGet_DefaultsToOrtho(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetHandler("/v0/scenes/ortho/s1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"s1","type":"Feature","properties":{"links":{"full":"https://api.planet.com/v0/scenes/ortho/s1/full"}}}`))
	})

	svc := newTestService(t, mock)

	s, err := svc.Get(context.Background(), Ref{ID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)

	links := s.Properties["links"].(map[string]any)
	assert.Equal(t, "https://api.planet.com/v0/scenes/ortho/s1/full?api_key=secret", links["full"])
}

func TestGet_AugmentsSelfLinks(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetResponse("/v0/scenes/ortho/a", testutil.NewJSONResponse(
		`{"id":"a","_links":{"_self":"https://api/x","count":3},"properties":{"links":{"thumb":"https://api/t"}}}`))

	svc := newTestService(t, mock)

	s, err := svc.Get(context.Background(), Ref{ID: "a"})
	require.NoError(t, err)

	require.NotNil(t, s.Links)
	assert.Equal(t, "https://api/x?api_key=secret", s.Links["_self"])
	assert.Equal(t, float64(3), s.Links["count"])
	assert.Equal(t, "https://api/t?api_key=secret", s.Properties["links"].(map[string]any)["thumb"])
}

func TestGet_WithoutAugmentation(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetResponse("/v0/scenes/landsat/l1", testutil.NewJSONResponse(
		`{"id":"l1","properties":{"links":{"full":"https://x/full"}}}`))

	svc := newTestService(t, mock)
	svc.AugmentLinks = false

	s, err := svc.Get(context.Background(), Ref{Type: "landsat", ID: "l1"})
	require.NoError(t, err)
	assert.Equal(t, "https://x/full", s.Properties["links"].(map[string]any)["full"])
}

func TestSearch_NavigatesPages(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetLinkedPages("/v0/scenes/ortho/", "features",
		[]any{scene("a"), scene("b")},
		[]any{scene("c")},
	)

	svc := newTestService(t, mock)

	q, err := Query{Count: 2}.Values()
	require.NoError(t, err)

	first, err := svc.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, first.Data.Features, 2)
	assert.True(t, first.HasNext())
	assert.False(t, first.HasPrev())
	assert.Empty(t, first.PrevLink)

	thumb := first.Data.Features[0].Properties["links"].(map[string]any)["thumbnail"]
	assert.Equal(t, "https://api.planet.com/v0/scenes/ortho/a/thumb?api_key=secret&size=sm", thumb)
	assert.Equal(t, "https://api.planet.com/v0/scenes/ortho/a?api_key=secret", first.Data.Features[0].Links["_self"])

	second, err := first.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, second.Data.Features, 1)
	assert.Equal(t, "c", second.Data.Features[0].ID)
	assert.False(t, second.HasNext())
	assert.True(t, second.HasPrev())

	_, err = second.Next(context.Background())
	assert.ErrorIs(t, err, pagination.ErrNoNextPage)

	back, err := second.Prev(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", back.Data.Features[0].ID)

	reqs := mock.GetRequests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "count=2", reqs[0].Query)
	assert.Equal(t, "cursor=2", reqs[1].Query)
	assert.Equal(t, "cursor=1", reqs[2].Query)
}

func TestSearch_TypeSelectsPathAndIsNotSent(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetLinkedPages("/v0/scenes/landsat/", "features",
		[]any{scene("l1")},
		[]any{scene("l2")},
	)

	svc := newTestService(t, mock)

	q := url.Values{"type": {"landsat"}, "count": {"1"}}
	page, err := svc.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "l1", page.Data.Features[0].ID)
	assert.Equal(t, "landsat", q.Get("type"))

	next, err := page.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "l2", next.Data.Features[0].ID)

	for _, req := range mock.GetRequests() {
		assert.Equal(t, "/v0/scenes/landsat/", req.Path)
		assert.NotContains(t, req.Query, "type=")
	}
}

func TestSearch_TerminatorOnNext(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetLinkedPages("/v0/scenes/ortho/", "features",
		[]any{scene("a")},
		[]any{scene("b")},
	)

	svc := newTestService(t, mock)

	first, err := svc.Search(context.Background(), url.Values{})
	require.NoError(t, err)

	_, err = first.Next(context.Background(), client.WithTerminator(func(abort func()) {
		abort()
	}))
	assert.ErrorIs(t, err, client.ErrAborted)
	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestSearch_Error(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetResponse("/v0/scenes/ortho/", testutil.NewErrorResponse(http.StatusBadRequest, "invalid count"))

	svc := newTestService(t, mock)

	_, err := svc.Search(context.Background(), url.Values{"count": {"-1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrBadRequest)

	var respErr *client.ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, "invalid count", respErr.Message)
}
