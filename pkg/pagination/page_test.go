package pagination

import (
	"context"
	"net/url"
	"testing"

	"github.com/Sternrassler/planet-client-go/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collection struct {
	Features []feature `json:"features"`
}

type factoryCall struct {
	query url.Values
	opts  int
}

// recordingFactory returns a factory that records its calls and yields a page
// without links.
func recordingFactory(calls *[]factoryCall) Factory[collection] {
	return func(_ context.Context, query url.Values, opts ...client.RequestOption) (*Page[collection], error) {
		*calls = append(*calls, factoryCall{query: query, opts: len(opts)})
		return NewPage[collection]([]byte(`{"features":[{"id":9}]}`), nil)
	}
}

func TestNewPage(t *testing.T) {
	body := []byte(`{"features":[{"id":1},{"id":2}],"links":{"next":"https://api/x?cursor=2"}}`)

	page, err := NewPage[collection](body, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, ids(page.Data.Features))
	assert.Equal(t, "https://api/x?cursor=2", page.NextLink)
	assert.Empty(t, page.PrevLink)
}

func TestNewPage_InvalidBody(t *testing.T) {
	_, err := NewPage[collection]([]byte(`not json`), nil)
	assert.Error(t, err)
}

func TestPage_NextParsesQuery(t *testing.T) {
	var calls []factoryCall
	body := []byte(`{"features":[],"links":{"next":"https://api/x?cursor=2"}}`)

	page, err := NewPage(body, recordingFactory(&calls))
	require.NoError(t, err)

	assert.True(t, page.HasNext())
	assert.False(t, page.HasPrev())

	next, err := page.Next(context.Background(), client.WithHeader("X-Test", "1"))
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, url.Values{"cursor": {"2"}}, calls[0].query)
	assert.Equal(t, 1, calls[0].opts)
	assert.Equal(t, []int{9}, ids(next.Data.Features))
}

func TestPage_Prev(t *testing.T) {
	var calls []factoryCall
	body := []byte(`{"links":{"prev":"/x?cursor=1&_page_size=10","next":"/x?cursor=3"}}`)

	page, err := NewPage(body, recordingFactory(&calls))
	require.NoError(t, err)

	_, err = page.Prev(context.Background())
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, "1", calls[0].query.Get("cursor"))
	assert.Equal(t, "10", calls[0].query.Get("_page_size"))
	assert.Zero(t, calls[0].opts)
}

func TestPage_MissingLinks(t *testing.T) {
	var calls []factoryCall
	page, err := NewPage([]byte(`{"features":[]}`), recordingFactory(&calls))
	require.NoError(t, err)

	assert.False(t, page.HasPrev())
	assert.False(t, page.HasNext())

	_, err = page.Prev(context.Background())
	assert.ErrorIs(t, err, ErrNoPrevPage)

	_, err = page.Next(context.Background())
	assert.ErrorIs(t, err, ErrNoNextPage)

	assert.Empty(t, calls)
}

func TestPage_LinksWithoutFactory(t *testing.T) {
	body := []byte(`{"features":[],"links":{"prev":"https://api/x?cursor=1","next":"https://api/x?cursor=3"}}`)

	page, err := NewPage[collection](body, nil)
	require.NoError(t, err)

	assert.True(t, page.HasPrev())
	assert.True(t, page.HasNext())

	_, err = page.Next(context.Background())
	assert.ErrorIs(t, err, ErrNoFactory)

	_, err = page.Prev(context.Background())
	assert.ErrorIs(t, err, ErrNoFactory)
}

func TestPage_NoCaching(t *testing.T) {
	var calls []factoryCall
	page, err := NewPage([]byte(`{"links":{"next":"/x?cursor=2"}}`), recordingFactory(&calls))
	require.NoError(t, err)

	for range 3 {
		_, err := page.Next(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, calls, 3)
}

func TestPage_BadLinkSkipsFactory(t *testing.T) {
	var calls []factoryCall
	page, err := NewPage([]byte(`{"links":{"next":"http://[::1"}}`), recordingFactory(&calls))
	require.NoError(t, err)

	_, err = page.Next(context.Background())
	assert.Error(t, err)
	assert.Empty(t, calls)
}

func TestPage_LinksAreSnapshot(t *testing.T) {
	body := []byte(`{"links":{"next":"/x?cursor=2"}}`)
	page, err := NewPage[map[string]any](body, nil)
	require.NoError(t, err)

	page.Data["links"] = map[string]any{"next": "/x?cursor=99"}
	body[len(body)-3] = 'X'

	assert.Equal(t, "/x?cursor=2", page.NextLink)
}
