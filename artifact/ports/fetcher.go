package ports

import "context"

// Fetcher retrieves remote artifacts over HTTP.
type Fetcher interface {
	// Head returns the advertised Content-Length. known is false when the
	// server did not send a usable length.
	Head(ctx context.Context, url string) (length int64, known bool, err error)

	// Get downloads the full body, failing once more than limit bytes arrive.
	// A limit <= 0 disables the cap.
	Get(ctx context.Context, url string, limit int64) ([]byte, error)
}
