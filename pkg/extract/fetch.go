package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/quka-ai/synthesis/pkg/utils"
)

func (e *Extractor) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if bucket, key, err := utils.ParseObjectURL(rawURL); err == nil {
		if e.objects == nil {
			return nil, "", fmt.Errorf("object storage is not configured, cannot read %s", rawURL)
		}
		obj, err := e.objects.Download(ctx, bucket, key)
		if err != nil {
			return nil, "", err
		}
		return obj.Body, obj.ContentType, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; synthesis/1.0)")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(body)) > e.maxBytes {
		return nil, "", fmt.Errorf("content of %s exceeds %d bytes", rawURL, e.maxBytes)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
