package mcpservice

import (
	"errors"
	"strconv"
)

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items      []T
	NextCursor *string
}

// PageOption configures a Page.
type PageOption[T any] func(*Page[T])

// WithNextCursor marks that more items follow.
func WithNextCursor[T any](cursor string) PageOption[T] {
	return func(p *Page[T]) { p.NextCursor = &cursor }
}

// NewPage builds a Page holding items.
func NewPage[T any](items []T, opts ...PageOption[T]) Page[T] {
	p := Page[T]{Items: items}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// ErrInvalidCursor is returned by list operations for a cursor they did not
// issue.
var ErrInvalidCursor = errors.New("mcpservice: invalid cursor")

// paginate slices all according to an offset cursor.
func paginate[T any](all []T, cursor *string, pageSize int) (Page[T], error) {
	start, err := parseCursor(cursor)
	if err != nil {
		return Page[T]{}, err
	}
	if start > len(all) {
		return Page[T]{}, ErrInvalidCursor
	}
	end := min(start+pageSize, len(all))
	items := make([]T, end-start)
	copy(items, all[start:end])
	if end < len(all) {
		return NewPage(items, WithNextCursor[T](strconv.Itoa(end))), nil
	}
	return NewPage(items), nil
}

func parseCursor(cursor *string) (int, error) {
	if cursor == nil || *cursor == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(*cursor)
	if err != nil || n < 0 {
		return 0, ErrInvalidCursor
	}
	return n, nil
}
