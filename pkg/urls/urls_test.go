package urls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		parts []string
		want  string
	}{
		{"single part", "https://api.planet.com", []string{"data/v1"}, "https://api.planet.com/data/v1"},
		{"strips duplicate slashes", "https://api.planet.com/", []string{"/data/v1/", "/item-types/"}, "https://api.planet.com/data/v1/item-types"},
		{"trailing empty keeps slash", "https://api.planet.com", []string{"v0/scenes", "ortho", ""}, "https://api.planet.com/v0/scenes/ortho/"},
		{"empty middle part skipped", "https://api.planet.com", []string{"a", "", "b"}, "https://api.planet.com/a/b"},
		{"no parts", "https://api.planet.com/", nil, "https://api.planet.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Join(tt.base, tt.parts...))
		})
	}
}

func TestBuilder(t *testing.T) {
	b := New("https://example.test")

	assert.Equal(t, "https://example.test/data/v1/item-types/PSScene/items/abc", b.Items("PSScene", "abc"))
	assert.Equal(t, "https://example.test/data/v1/item-types/", b.ItemTypes(""))
	assert.Equal(t, "https://example.test/data/v1/item-types/REOrthoTile", b.ItemTypes("REOrthoTile"))
	assert.Equal(t, "https://example.test/data/v1/quick-search", b.QuickSearch())
	assert.Equal(t, "https://example.test/data/v1/searches/s1/results", b.Searches("s1", "results"))
	assert.Equal(t, "https://example.test/v0/scenes/ortho/", b.Scenes("ortho", ""))
	assert.Equal(t, "https://example.test/v0/scenes/landsat/x1", b.Scenes("landsat", "x1"))

	assert.Equal(t, DefaultBase, New("").Base)
}

func TestEncode(t *testing.T) {
	type q struct {
		PageSize int    `url:"_page_size,omitempty"`
		Sort     string `url:"_sort,omitempty"`
	}

	values, err := Encode(q{PageSize: 50, Sort: "acquired desc"})
	require.NoError(t, err)
	assert.Equal(t, "50", values.Get("_page_size"))
	assert.Equal(t, "acquired desc", values.Get("_sort"))

	values, err = Encode(q{})
	require.NoError(t, err)
	assert.Empty(t, values)

	values, err = Encode(nil)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestParseQuery(t *testing.T) {
	values, err := ParseQuery("https://api/x?cursor=2&_page_size=10")
	require.NoError(t, err)
	assert.Equal(t, "2", values.Get("cursor"))
	assert.Equal(t, "10", values.Get("_page_size"))

	values, err = ParseQuery("/relative/path")
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = ParseQuery("http://[::1")
	assert.Error(t, err)
}

func TestAddQuery(t *testing.T) {
	link, err := AddQuery("https://api/x/thumb?size=sm", "api_key", "k")
	require.NoError(t, err)
	assert.Equal(t, "https://api/x/thumb?api_key=k&size=sm", link)
}
