package cache

import (
	"net/url"
	"strings"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "no principal no params",
			key: CacheKey{
				Endpoint: "api.planet.com/data/v1/item-types/",
			},
			want: "planet:cache:_:api.planet.com/data/v1/item-types",
		},
		{
			name: "principal scoped",
			key: CacheKey{
				Endpoint:  "api.planet.com/data/v1/item-types/PSScene",
				Principal: "3fa1c0de",
			},
			want: "planet:cache:3fa1c0de:api.planet.com/data/v1/item-types/PSScene",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheKey_QueryDigest(t *testing.T) {
	base := CacheKey{Endpoint: "api.planet.com/v0/scenes/ortho/", Principal: "p"}

	withQuery := func(q url.Values) string {
		k := base
		k.QueryParams = q
		return k.String()
	}

	a := withQuery(url.Values{"count": {"50"}, "cursor": {"2"}})
	b := withQuery(url.Values{"cursor": {"2"}, "count": {"50"}})
	if a != b {
		t.Errorf("key depends on map order: %q vs %q", a, b)
	}

	if !strings.HasPrefix(a, "planet:cache:p:api.planet.com/v0/scenes/ortho:q=") {
		t.Errorf("unexpected key layout: %q", a)
	}
	if len(a) != len("planet:cache:p:api.planet.com/v0/scenes/ortho:q=")+16 {
		t.Errorf("digest length: %q", a)
	}

	if withQuery(url.Values{"cursor": {"3"}, "count": {"50"}}) == a {
		t.Error("different query values must produce different keys")
	}
	if withQuery(url.Values{"type": {"a", "b"}}) == withQuery(url.Values{"type": {"b", "a"}}) {
		t.Error("order of repeated values must be significant")
	}

	large := url.Values{"intersects": {strings.Repeat("POLYGON((1 2,3 4)) ", 500)}}
	if got := withQuery(large); len(got) > 100 {
		t.Errorf("key for large query is %d bytes", len(got))
	}
}

func TestPattern(t *testing.T) {
	tests := []struct {
		principal string
		want      string
		matches   []string
		misses    []string
	}{
		{
			principal: "one",
			want:      "planet:cache:one:*",
			matches:   []string{CacheKey{Endpoint: "h/a", Principal: "one"}.String()},
			misses:    []string{CacheKey{Endpoint: "h/a", Principal: "two"}.String()},
		},
		{
			principal: "",
			want:      "planet:cache:*",
			matches: []string{
				CacheKey{Endpoint: "h/a", Principal: "one"}.String(),
				CacheKey{Endpoint: "h/a"}.String(),
			},
			misses: []string{"planet:rate_limit:state"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := Pattern(tt.principal)
			if got != tt.want {
				t.Fatalf("Pattern(%q) = %q, want %q", tt.principal, got, tt.want)
			}
			prefix := strings.TrimSuffix(got, "*")
			for _, key := range tt.matches {
				if !strings.HasPrefix(key, prefix) {
					t.Errorf("%q should match %q", got, key)
				}
			}
			for _, key := range tt.misses {
				if strings.HasPrefix(key, prefix) {
					t.Errorf("%q should not match %q", got, key)
				}
			}
		})
	}
}
