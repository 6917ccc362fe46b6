// Package pagination walks cursor-linked Planet API result sets.
//
// Catalog endpoints return one page of items per response together with a
// link to the next page. Pages and Run follow those links strictly in
// sequence, so at most one request is in flight per run:
//
//	items, err := pagination.Run[items.Item](ctx, c, client.Request{
//		Method: http.MethodPost,
//		URL:    b.QuickSearch(),
//		Body:   body,
//	}, "features", nil, pagination.WithLimit(500))
//
// A run stops when a page has no next link, when the limit is reached, or
// when it is aborted through the termination hook installed with
// WithTerminator. A single hook aborts whichever page request is in flight.
//
// Page wraps one response of a single-shot search together with its prev and
// next links. Page.Next and Page.Prev call the search's factory again with
// the query parsed from the link.
package pagination
