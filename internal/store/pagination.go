package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

type OrderCursor struct {
	OrderDate time.Time `json:"order_date"`
	ID        int64     `json:"id"`
}

// startCursor sorts after every real order, so the first page needs no special query.
var startCursor = OrderCursor{
	OrderDate: time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC),
	ID:        int64(1<<63 - 1),
}

func EncodeCursor(cursor OrderCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

func DecodeCursor(encoded string) (OrderCursor, error) {
	var cursor OrderCursor
	if encoded == "" {
		return startCursor, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	if err := json.Unmarshal(data, &cursor); err != nil {
		return cursor, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return cursor, nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
