package dnsimple

import "context"

// PageFetcher fetches a single page of a collection. It is usually a list
// method with its non-paging arguments bound.
type PageFetcher[T any] func(ctx context.Context, opts *ListOptions) (*Response[[]T], error)

// CollectAll calls fetch page by page, starting at opts.Page (or 1), until
// the server reports no more pages, and returns every item in page order.
//
// Pages are requested one at a time because the stop condition is only known
// after each response. Any error aborts the walk and is returned as-is; items
// collected so far are discarded. opts is not modified.
func CollectAll[T any](ctx context.Context, fetch PageFetcher[T], opts *ListOptions) ([]T, error) {
	pageOpts := opts.clone()

	page := 1
	if pageOpts.Page != nil {
		page = *pageOpts.Page
	}

	items := make([]T, 0)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageOpts.Page = Int(page)
		resp, err := fetch(ctx, pageOpts)
		if err != nil {
			return nil, err
		}

		items = append(items, resp.Data...)

		if resp.Pagination == nil || page >= resp.Pagination.TotalPages {
			break
		}
		page++
	}

	return items, nil
}
