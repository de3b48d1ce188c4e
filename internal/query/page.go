package query

import (
	"fmt"
	"math"

	"github.com/onlinecourse/catalog/internal/model"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// Page is a 1-indexed page request.
type Page struct {
	Number int
	Size   int
}

// NewPage validates a page request. Out-of-range values are rejected, not clamped.
func NewPage(number, size int) (Page, error) {
	if number < 1 {
		return Page{}, fmt.Errorf("%w: page must be >= 1, got %d", model.ErrValidation, number)
	}
	if size < 1 || size > MaxSize {
		return Page{}, fmt.Errorf("%w: size must be between 1 and %d, got %d", model.ErrValidation, MaxSize, size)
	}
	return Page{Number: number, Size: size}, nil
}

// Offset is the 0-indexed position of the first row on the page. It
// saturates at math.MaxInt, which is past the end of any result.
func (p Page) Offset() int {
	if p.Size > 0 && p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// Limit is the maximum number of rows on the page.
func (p Page) Limit() int {
	return p.Size
}

// Slice cuts the page window out of an already ordered slice. A page past the
// end yields an empty, non-nil slice.
func Slice[T any](items []T, p Page) []T {
	start := p.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + p.Limit()
	if end > len(items) || end < start {
		end = len(items)
	}
	return items[start:end]
}
