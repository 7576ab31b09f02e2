package utils

// CalculateOffset computes the row offset for a zero-based page number.
func CalculateOffset(page, size int) int {
	return page * size
}

// CalculateTotalPages computes the number of pages needed for totalCount rows.
// Zero rows means zero pages.
func CalculateTotalPages(totalCount int64, size int) int {
	if size <= 0 {
		return 0
	}
	return int((totalCount + int64(size) - 1) / int64(size))
}

// HasNextPage reports whether a page after currentPage exists.
func HasNextPage(currentPage, totalPages int) bool {
	return currentPage < totalPages-1
}

// HasPrevPage reports whether a page before currentPage exists.
func HasPrevPage(currentPage int) bool {
	return currentPage > 0
}
