package mcp

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// PageSize is the fixed tools/list page size from §4.7.
const PageSize = 50

// encodeCursor renders a start index as the opaque cursor string clients
// are expected to pass back verbatim.
func encodeCursor(start int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(start)))
}

// decodeCursor recovers the start index from an opaque cursor. An empty
// cursor means "start from the beginning".
func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor: %w", err)
	}
	start, err := strconv.Atoi(string(raw))
	if err != nil || start < 0 {
		return 0, fmt.Errorf("invalid cursor: %q", cursor)
	}
	return start, nil
}

// paginate slices items[start:start+PageSize] and returns the next cursor,
// which is empty once the slice reaches the end, per invariant 1 in §8 ("no
// duplicates and no omissions" when concatenating pages in cursor order).
func paginate[T any](items []T, cursor string) (page []T, nextCursor string, err error) {
	start, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	if start >= len(items) {
		return []T{}, "", nil
	}

	end := start + PageSize
	if end > len(items) {
		end = len(items)
	}

	page = items[start:end]
	if end < len(items) {
		nextCursor = encodeCursor(end)
	}
	return page, nextCursor, nil
}
