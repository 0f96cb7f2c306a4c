package fastmcp

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// DefaultPageSize is the page size used when a cursor does not carry one.
const DefaultPageSize = 50

// PageCursor is the opaque pagination token used by list operations. On the
// wire it is base64-encoded JSON so clients treat it as opaque while servers
// can round-trip it losslessly.
type PageCursor struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// FirstPage returns the default cursor used for nil/empty cursor input.
func FirstPage() PageCursor {
	return PageCursor{Offset: 0, Limit: DefaultPageSize}
}

// ParseCursor decodes a wire cursor. Empty input yields FirstPage; anything
// undecodable is ErrInvalidCursor.
func ParseCursor(cursor string) (PageCursor, error) {
	if cursor == "" {
		return FirstPage(), nil
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return PageCursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c PageCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return PageCursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.Limit <= 0 {
		c.Limit = DefaultPageSize
	}
	if c.Offset < 0 {
		c.Offset = 0
	}
	return c, nil
}

// Encode renders the wire form.
func (c PageCursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.StdEncoding.EncodeToString(raw)
}

// Next returns the cursor for the following page.
func (c PageCursor) Next() PageCursor {
	return PageCursor{Offset: c.Offset + c.Limit, Limit: c.Limit}
}

// Page is a single page of results with an optional cursor for fetching the
// next page. Items is never nil; NewPage normalizes nil input.
type Page[T any] struct {
	Items      []T
	NextCursor *string
}

// PageOption configures a Page constructed via NewPage.
type PageOption[T any] func(*Page[T])

// WithNextCursor sets the next cursor to indicate more results exist.
func WithNextCursor[T any](cursor string) PageOption[T] {
	return func(p *Page[T]) { p.NextCursor = &cursor }
}

// NewPage constructs a Page with the provided items.
func NewPage[T any](items []T, opts ...PageOption[T]) Page[T] {
	if items == nil {
		items = make([]T, 0)
	}
	p := Page[T]{Items: items}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// paginate slices a full snapshot according to the wire cursor.
func paginate[T any](all []T, cursor string) (Page[T], error) {
	c, err := ParseCursor(cursor)
	if err != nil {
		return Page[T]{}, err
	}
	start := c.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + c.Limit
	if end > len(all) {
		end = len(all)
	}
	items := make([]T, end-start)
	copy(items, all[start:end])
	if end < len(all) {
		return NewPage(items, WithNextCursor[T](c.Next().Encode())), nil
	}
	return NewPage(items), nil
}
