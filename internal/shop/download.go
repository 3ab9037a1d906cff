package shop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"

	"github.com/quietbay/paydrop/internal/ledger"
	"github.com/quietbay/paydrop/internal/objectstore"
)

type DownloadResult struct {
	Body     io.ReadCloser
	Size     int64
	Filename string
	ItemID   string
}

// Downloader turns a token into a one-time byte stream. The token is
// consumed before the first byte is fetched; a failure after that
// point does not resurrect it.
type Downloader struct {
	Ledger   *ledger.Ledger
	Objects  objectstore.Store
	Notifier Notifier
}

func (d *Downloader) Serve(ctx context.Context, token string) (DownloadResult, error) {
	rec, err := d.Ledger.Redeem(ctx, token)
	if err != nil {
		return DownloadResult{}, err
	}

	body, size, err := d.Objects.Get(ctx, rec.Path)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotExist) {
			// Operational alert: a valid token pointed at nothing.
			log.Printf("download: object %q missing for redeemed token (item %s)", rec.Path, rec.ItemID)
			return DownloadResult{}, fmt.Errorf("%w: %s", ErrStorageInconsistency, rec.ItemID)
		}
		return DownloadResult{}, fmt.Errorf("fetch object: %w", err)
	}

	if d.Notifier != nil {
		go d.Notifier.Notify("download", fmt.Sprintf("served %s for %s", rec.ItemID, rec.TransactionRef))
	}

	return DownloadResult{
		Body:     body,
		Size:     size,
		Filename: path.Base(rec.Path),
		ItemID:   rec.ItemID,
	}, nil
}
