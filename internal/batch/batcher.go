// Package batch splits ordered operation lists into bounded, contiguous batches.
package batch

import (
	"errors"
	"fmt"
	"iter"
)

// ErrInvalidBatchSize is returned for a batch size below one.
var ErrInvalidBatchSize = errors.New("batch size must be positive")

// Chunks yields consecutive sub-slices of items holding exactly size elements,
// except the last which holds the remainder. Batches share the backing array
// of items and are produced lazily. Panics if size < 1.
func Chunks[T any](items []T, size int) iter.Seq[[]T] {
	if size < 1 {
		panic(fmt.Sprintf("batch: %v: %d", ErrInvalidBatchSize, size))
	}
	return func(yield func([]T) bool) {
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			if !yield(items[start:end:end]) {
				return
			}
		}
	}
}

// Count returns the number of batches Chunks yields for n items.
func Count(n, size int) (int, error) {
	if size < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBatchSize, size)
	}
	if n <= 0 {
		return 0, nil
	}
	return (n + size - 1) / size, nil
}

// Plan materializes every batch of items, validating size first.
func Plan[T any](items []T, size int) ([][]T, error) {
	n, err := Count(len(items), size)
	if err != nil {
		return nil, err
	}
	out := make([][]T, 0, n)
	for b := range Chunks(items, size) {
		out = append(out, b)
	}
	return out, nil
}
