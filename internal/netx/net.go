// Package netx streams local files to presigned object-store URLs.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ProgressFunc receives the number of bytes sent so far and the total size.
type ProgressFunc func(transferred, total int64)

// ProgressReader wraps an io.Reader and reports cumulative bytes read.
type ProgressReader struct {
	r           io.Reader
	total       int64
	transferred int64
	fn          ProgressFunc
}

func NewProgressReader(r io.Reader, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, fn: fn}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.transferred += int64(n)
		if p.fn != nil {
			p.fn(p.transferred, p.total)
		}
	}
	return n, err
}

// Transferred returns the bytes read so far.
func (p *ProgressReader) Transferred() int64 { return p.transferred }

// PutPresigned uploads body to a presigned PUT URL. headers must contain every
// header that was signed into the URL (content type, x-amz-meta-*).
func PutPresigned(ctx context.Context, client *http.Client, url string, body io.Reader, size int64, headers http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return err
	}
	req.ContentLength = size
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
