package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist reports a path with no backing object. After a token has
// been redeemed this means catalog/storage drift, not a bad request.
var ErrNotExist = errors.New("object does not exist")

// Store fetches deliverable blobs by path.
type Store interface {
	Get(ctx context.Context, path string) (body io.ReadCloser, size int64, err error)
}
