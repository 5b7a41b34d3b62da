package util

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page turns a 1-based page and a size into offset and limit.
func Page(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return (page - 1) * size, size
}
