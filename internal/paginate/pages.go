package paginate

const DefaultPageSize = 9

// Pages is the number of pages needed for total items, at least 1.
func Pages(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Page returns the 1-based page of items. Out-of-range pages are empty.
func Page[T any](items []T, page, size int) []T {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		return []T{}
	}
	from := (page - 1) * size
	if from >= len(items) {
		return []T{}
	}
	to := min(from+size, len(items))
	return items[from:to:to]
}
