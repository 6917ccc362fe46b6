// Package urls builds Planet API locators and encodes query structs.
package urls

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"
)

// DefaultBase is the production API root.
const DefaultBase = "https://api.planet.com"

// Path roots of the catalog resources.
const (
	DataAPI   = "data/v1"
	ScenesAPI = "v0/scenes"
)

// Join joins a base URL and path segments with single slashes. An empty last
// part keeps a trailing slash.
func Join(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for i, part := range parts {
		trimmed := strings.Trim(part, "/")
		if trimmed == "" {
			if i == len(parts)-1 {
				out += "/"
			}
			continue
		}
		out += "/" + trimmed
	}
	return out
}

// Builder produces resource URLs rooted at Base.
type Builder struct {
	Base string
}

// New returns a Builder for base, falling back to DefaultBase.
func New(base string) Builder {
	if base == "" {
		base = DefaultBase
	}
	return Builder{Base: base}
}

// Items is the URL of one item, or of the items collection of a type when id is empty.
func (b Builder) Items(itemType, id string) string {
	return Join(b.Base, DataAPI, "item-types", itemType, "items", id)
}

// ItemTypes is the URL of one item type, or of all item types when id is empty.
func (b Builder) ItemTypes(id string) string {
	return Join(b.Base, DataAPI, "item-types", id)
}

// QuickSearch is the URL for ad-hoc filtered searches.
func (b Builder) QuickSearch() string {
	return Join(b.Base, DataAPI, "quick-search")
}

// Searches is the URL of a saved search, optionally followed by a sub-resource
// such as "results".
func (b Builder) Searches(id string, rest ...string) string {
	return Join(b.Base, append([]string{DataAPI, "searches", id}, rest...)...)
}

// Scenes is the URL of one scene, or of the scene collection of a type when id is empty.
func (b Builder) Scenes(sceneType, id string) string {
	return Join(b.Base, ScenesAPI, sceneType, id)
}

// Encode converts a struct tagged with `url:"..."` into query values.
func Encode(v any) (url.Values, error) {
	if v == nil {
		return url.Values{}, nil
	}
	values, err := query.Values(v)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	return values, nil
}

// ParseQuery extracts the query component of a link as key/value pairs.
func ParseQuery(link string) (url.Values, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("parse link %q: %w", link, err)
	}
	return u.Query(), nil
}

// AddQuery returns link with key=value set in its query string.
func AddQuery(link, key, value string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", link, err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
