package storage

import (
	"context"
)

// Storage persists diff artifacts (rendered images, reports) outside
// the process.
type Storage interface {
	// Put stores data under the given key and returns the resulting URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from a URL previously returned by Put
	Get(ctx context.Context, url string) ([]byte, error)
}
