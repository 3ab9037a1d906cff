package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSStore serves objects from a local directory, mainly for local
// setups and tests.
type FSStore struct {
	Dir string
}

func (s FSStore) Get(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	_ = ctx
	dir := strings.TrimSpace(s.Dir)
	if dir == "" {
		return nil, 0, errors.New("file store not configured")
	}

	path = strings.TrimSpace(path)
	if path == "" || strings.HasPrefix(path, "/") || strings.Contains(path, "\\") {
		return nil, 0, ErrNotExist
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, 0, ErrNotExist
	}

	f, err := os.Open(filepath.Join(dir, clean))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, ErrNotExist
		}
		return nil, 0, fmt.Errorf("open object %q: %w", clean, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat object %q: %w", clean, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, 0, ErrNotExist
	}
	return f, st.Size(), nil
}
