// Package pagination slices already-sorted lists into fixed-size pages.
package pagination

// DefaultPageSize is the number of cards shown per board column page.
const DefaultPageSize = 30

// Slice returns page (1-indexed) of items. Pages below 1 are treated as the
// first page; pages past the end are empty. A non-positive size falls back
// to DefaultPageSize. The result shares storage with items.
func Slice[T any](items []T, page, size int) []T {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	// compare page counts first; (page-1)*size overflows for huge pages
	if page > TotalPages(len(items), size) {
		return []T{}
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// TotalPages is ceil(n / size).
func TotalPages(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if n <= 0 {
		return 0
	}
	return (n-1)/size + 1
}
