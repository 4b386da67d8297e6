// Package artwork probes cover art dimensions so the scorer can bucket a
// track's art into a resolution tier. It never stores or transforms images.
package artwork

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"

	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	_ "golang.org/x/image/webp" // register WebP decoder
)

// maxProbeBytes bounds how much of an image is read to decode its header.
const maxProbeBytes = 256 * 1024

// Probe decodes just the image header and returns its pixel dimensions.
func Probe(r io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(io.LimitReader(r, maxProbeBytes))
	if err != nil {
		return 0, 0, fmt.Errorf("decoding image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// FetchWidth retrieves an image URL and returns its width in pixels. The
// body read is capped at the header-probe limit; the full image is never
// downloaded.
func FetchWidth(ctx context.Context, client *http.Client, imageURL string) (int, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching cover art: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProbeBytes))
		return 0, fmt.Errorf("fetching cover art: HTTP %d", resp.StatusCode)
	}

	width, _, err := Probe(resp.Body)
	if err != nil {
		return 0, err
	}
	return width, nil
}
