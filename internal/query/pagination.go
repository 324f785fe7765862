package query

// Page is a pagination window over a sorted result.
type Page struct {
	Number int
	Size   int
}

// NewPage normalizes request values: a non-positive number becomes 1, a
// non-positive size becomes defaultSize, and size is capped at maxSize when
// maxSize is positive.
func NewPage(number, size, defaultSize, maxSize int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = defaultSize
	}
	if size < 1 {
		size = 1
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return Page{Number: number, Size: size}
}

// Skip is the number of results before the window.
func (p Page) Skip() int {
	return p.Size * (p.Number - 1)
}

// Limit is the maximum number of results in the window.
func (p Page) Limit() int {
	return p.Size
}

// Pages returns ceil(total / Size). Zero results yield zero pages.
func (p Page) Pages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + p.Size - 1) / p.Size
}
