package catalog

// PaginationOptions describes an offset-paginated window. Offset pagination
// can skip or duplicate rows under concurrent writes; sync endpoints use
// keyset pagination (FullSyncOptions) instead.
type PaginationOptions struct {
	Take int
	Skip int
}

// Page is the result envelope for offset-paginated queries.
type Page[T any] struct {
	Items       []T
	HasNextPage bool
}

// Paginate shapes an over-fetched result set (take+1 rows requested) into a
// page of at most take items with next-page detection.
func Paginate[T any](items []T, take int) Page[T] {
	hasNextPage := len(items) > take
	if hasNextPage {
		items = items[:take]
	}
	return Page[T]{Items: items, HasNextPage: hasNextPage}
}
