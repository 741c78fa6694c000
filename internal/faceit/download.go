package faceit

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// DownloadDemo fetches demoURL into dir/<name>.dem, decompressing bz2, zstd
// or gzip payloads. It returns the written path.
func (c *Client) DownloadDemo(ctx context.Context, demoURL, dir, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, demoURL, nil)
	if err != nil {
		return "", err
	}
	// Demo downloads can take minutes; the API timeout does not apply.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	src, closeSrc, err := decompressor(demoURL, resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return "", err
	}
	defer closeSrc()

	outPath := filepath.Join(dir, name+".dem")
	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("write: %w", err)
	}
	return outPath, nil
}

// decompressor picks a decoder from the URL suffix or the content encoding.
func decompressor(demoURL, contentEncoding string, r io.Reader) (io.Reader, func(), error) {
	path := demoURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch {
	case strings.HasSuffix(path, ".bz2"):
		return bzip2.NewReader(r), func() {}, nil
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return dec, dec.Close, nil
	case strings.HasSuffix(path, ".gz") || contentEncoding == "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	default:
		return r, func() {}, nil
	}
}
