package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBucketLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := New(dir, "http://localhost:8080/fotos/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := b.Upload(ctx, "a.jpg", []byte("x"), "image/jpeg", false); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := b.Upload(ctx, "a.jpg", []byte("y"), "image/jpeg", false); err == nil {
		t.Fatal("expected conflict without upsert")
	}
	if err := b.Upload(ctx, "a.jpg", []byte("yz"), "image/jpeg", true); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
	if err != nil || string(data) != "yz" {
		t.Fatalf("unexpected content %q (%v)", data, err)
	}

	if got := b.PublicURL("a.jpg"); got != "http://localhost:8080/fotos/a.jpg" {
		t.Fatalf("unexpected url %s", got)
	}

	if err := b.Remove(ctx, "a.jpg"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := b.Remove(ctx, "a.jpg"); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
}

func TestBucketRejectsPaths(t *testing.T) {
	b, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, name := range []string{"", "..", "../x.jpg", "sub/x.jpg"} {
		if err := b.Upload(context.Background(), name, nil, "", true); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Upload(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}
