// Package cache provides a Redis-backed response cache for Planet API GET
// requests.
//
// Keys are scoped by a hash of the caller's API key, so responses are never
// shared between accounts, and fold the query string into a short digest:
//
//	planet:cache:3fa1c0de:api.planet.com/v0/scenes/ortho:q=9c1f0e2a7b3d4c55
//
// Each entry keeps the validators (ETag, Last-Modified) needed to revalidate
// it. The client always revalidates a cached entry with a conditional request
// and serves the stored body on 304, after which Refresh moves its expiry.
//
// # Usage
//
//	manager := cache.NewManager(redisClient)
//	key := cache.CacheKey{Endpoint: host + path, QueryParams: query, Principal: principal}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then:
//		_ = manager.Set(ctx, key, cache.NewEntry(200, header, body, time.Minute))
//	}
//
//	// drop everything cached for one API key
//	n, err := manager.Purge(ctx, principal)
package cache
