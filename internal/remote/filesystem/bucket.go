// Package filesystem stores photo objects in a local directory, for self-hosted
// setups where a static file server exposes that directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gastos/internal/remote"
)

var ErrInvalidName = errors.New("invalid object name")

type Bucket struct {
	dir     string
	baseURL string
}

// New creates dir if needed. baseURL is the prefix under which dir is served.
func New(dir, baseURL string) (*Bucket, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo dir: %w", err)
	}
	return &Bucket{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *Bucket) Dir() string { return b.dir }

func (b *Bucket) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(b.dir, name), nil
}

func (b *Bucket) Upload(ctx context.Context, name string, data []byte, _ string, upsert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := b.path(name)
	if err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !upsert {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(p, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open object: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write object: %w", err)
	}
	return f.Close()
}

func (b *Bucket) PublicURL(name string) string {
	return b.baseURL + "/" + url.PathEscape(name)
}

// Remove treats a missing object as already removed.
func (b *Bucket) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := b.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

var _ remote.Bucket = (*Bucket)(nil)
