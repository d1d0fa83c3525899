package analysis

import "fmt"

// Chunks splits items into consecutive groups of at most size
// elements; the last group may be shorter. The chunks reference the
// input's backing array, and their concatenation in order reproduces
// the input exactly. A non-positive size is a configuration error.
func Chunks[T any](items []T, size int) ([][]T, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrInvalidConfig, size)
	}

	if len(items) == 0 {
		return nil, nil
	}

	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out, nil
}
