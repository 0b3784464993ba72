// Package pagination walks Canvas list endpoints page by page.
//
// Canvas paginates with an RFC 8288 style Link header. Each page names its
// successor in a rel="next" segment whose URL already embeds the cursor and the
// original query, so the paginator follows it verbatim and attaches explicit
// query parameters only to the first request.
//
// Example usage:
//
//	pager := pagination.New(canvasClient)
//	for course, err := range pager.All(ctx, canvasClient.URL("/api/v1/courses"), params) {
//		if err != nil {
//			return err
//		}
//		// use course
//	}
//
// The sequence is lazy: a page is requested only when the consumer has drained
// the previous one, and breaking out of the loop stops further requests. Ranging
// over the same sequence again starts from the first page.
//
// Pages are fetched strictly one after another. Each fetch goes through the
// client's retry policy, so a page that eventually succeeds after 429 or 5xx
// responses is yielded exactly once.
package pagination
