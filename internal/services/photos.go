package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// ErrPhotoOutsideDir is returned for relative references that leave the photo directory.
var ErrPhotoOutsideDir = errors.New("photo reference escapes the photo directory")

// PhotoReader loads the bytes behind a local photo reference.
type PhotoReader interface {
	ReadPhoto(ctx context.Context, ref string) (data []byte, contentType string, err error)
}

// FilePhotoReader resolves references as file paths. Absolute paths are read as
// given; relative ones are opened inside Dir and may not escape it.
type FilePhotoReader struct {
	Dir string
}

func (r FilePhotoReader) ReadPhoto(ctx context.Context, ref string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	data, err := r.read(ref)
	if err != nil {
		return nil, "", fmt.Errorf("read photo: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("read photo: %s is empty", ref)
	}
	return data, http.DetectContentType(data), nil
}

func (r FilePhotoReader) read(ref string) ([]byte, error) {
	if filepath.IsAbs(ref) {
		return os.ReadFile(ref)
	}
	if !filepath.IsLocal(ref) {
		return nil, fmt.Errorf("%w: %s", ErrPhotoOutsideDir, ref)
	}
	dir := r.Dir
	if dir == "" {
		dir = "."
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	f, err := root.Open(ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
