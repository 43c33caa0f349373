// Package pagination provides cursor-based paging over newest-first lists.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidCursor is returned for cursors that do not decode.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the position of the last item a client has seen.
type Cursor struct {
	At time.Time
	ID string
}

// Encode returns an opaque cursor string from a timestamp and ID.
func Encode(at time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", at.UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses an opaque cursor string. Returns nil for empty input.
func Decode(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	nanos, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{At: time.Unix(0, n).UTC(), ID: id}, nil
}

// Page is one slice of a listing.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// Paginate returns up to limit items that follow cursor in items, which must
// be ordered newest first. The item matching the cursor ID is the resume
// point; if it is gone, paging resumes at the first item strictly older than
// the cursor time. A nil cursor starts at the beginning.
func Paginate[T any](items []T, cursor *Cursor, limit int, key func(T) (time.Time, string)) Page[T] {
	start := 0
	if cursor != nil {
		start = len(items)
		for i, it := range items {
			if _, id := key(it); id == cursor.ID {
				start = i + 1
				break
			}
		}
		if start == len(items) {
			for i, it := range items {
				if at, _ := key(it); at.Before(cursor.At) {
					start = i
					break
				}
			}
		}
	}

	rest := items[start:]
	if limit <= 0 || len(rest) <= limit {
		return Page[T]{Items: rest}
	}
	rest = rest[:limit]
	at, id := key(rest[len(rest)-1])
	return Page[T]{Items: rest, NextCursor: Encode(at, id), HasMore: true}
}
