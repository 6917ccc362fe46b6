package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "planet:cache"

// anonymous is the principal segment used when a key has no principal.
const anonymous = "_"

// CacheKey identifies a cached GET response.
type CacheKey struct {
	// Endpoint is host plus path (e.g., "api.planet.com/data/v1/item-types/")
	Endpoint string

	// QueryParams are the request's query parameters.
	QueryParams url.Values

	// Principal identifies the credentials the response was fetched with.
	Principal string
}

// String renders the Redis key:
//
//	planet:cache:<principal>:<endpoint>[:q=<digest>]
//
// Query parameters are folded into a digest because scene queries can carry
// whole geometries.
func (k CacheKey) String() string {
	var b strings.Builder
	b.WriteString(principalPrefix(k.Principal))
	b.WriteString(strings.Trim(k.Endpoint, "/"))

	if len(k.QueryParams) > 0 {
		b.WriteString(":q=")
		b.WriteString(queryDigest(k.QueryParams))
	}
	return b.String()
}

// Pattern matches every key of principal, or all keys when principal is empty.
func Pattern(principal string) string {
	if principal == "" {
		return KeyPrefix + ":*"
	}
	return principalPrefix(principal) + "*"
}

func principalPrefix(principal string) string {
	if principal == "" {
		principal = anonymous
	}
	return KeyPrefix + ":" + principal + ":"
}

// queryDigest hashes the canonical encoding of q. Encode sorts by key and
// keeps repeated values in order.
func queryDigest(q url.Values) string {
	sum := sha256.Sum256([]byte(q.Encode()))
	return hex.EncodeToString(sum[:8])
}
