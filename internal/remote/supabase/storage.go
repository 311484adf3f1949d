package supabase

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"

	"gastos/internal/remote"
)

// Bucket implements remote.Bucket on the storage object endpoint.
type Bucket struct {
	c *Client
}

func (b *Bucket) objectPath(name string) string {
	return "/storage/v1/object/" + url.PathEscape(b.c.bucket) + "/" + url.PathEscape(name)
}

func (b *Bucket) Upload(ctx context.Context, name string, data []byte, contentType string, upsert bool) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return b.c.do(ctx, request{
		method:      http.MethodPost,
		path:        b.objectPath(name),
		body:        bytes.NewReader(data),
		contentType: contentType,
		headers:     map[string]string{"x-upsert": strconv.FormatBool(upsert)},
	}, nil)
}

// PublicURL builds the unauthenticated download URL. It does not check existence.
func (b *Bucket) PublicURL(name string) string {
	return b.c.baseURL + "/storage/v1/object/public/" + url.PathEscape(b.c.bucket) + "/" + url.PathEscape(name)
}

func (b *Bucket) Remove(ctx context.Context, name string) error {
	return b.c.do(ctx, request{method: http.MethodDelete, path: b.objectPath(name)}, nil)
}

var _ remote.Bucket = (*Bucket)(nil)
