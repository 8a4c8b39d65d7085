package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"abode/internal/ports"
)

func TestPutGetRoundTrip(t *testing.T) {
	fs := New(t.TempDir())
	ctx := context.Background()

	out, err := fs.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   "renders/job-1/output.png",
		ContentType: "image/png",
		Reader:      strings.NewReader("png bytes"),
	})
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if out.ObjectKey != "renders/job-1/output.png" {
		t.Errorf("object key = %q", out.ObjectKey)
	}

	rc, contentType, size, err := fs.GetObject(ctx, "renders/job-1/output.png")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	defer rc.Close()

	body, _ := io.ReadAll(rc)
	if string(body) != "png bytes" {
		t.Errorf("body = %q", body)
	}
	if contentType != "image/png" {
		t.Errorf("content type = %q, want image/png", contentType)
	}
	if size != int64(len("png bytes")) {
		t.Errorf("size = %d", size)
	}
}

func TestDeleteObject(t *testing.T) {
	fs := New(t.TempDir())
	ctx := context.Background()

	if _, err := fs.PutObject(ctx, ports.PutObjectInput{
		ObjectKey: "renders/job-2/output.png",
		Reader:    strings.NewReader("x"),
	}); err != nil {
		t.Fatalf("PutObject: %v", err)
	}

	if err := fs.DeleteObject(ctx, "renders/job-2/output.png"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if _, _, _, err := fs.GetObject(ctx, "renders/job-2/output.png"); err == nil {
		t.Error("GetObject succeeded after delete")
	}
}

func TestEscapingKeysRejected(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "artifacts")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir root: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "secret.txt"), []byte("db-password"), 0o600); err != nil {
		t.Fatalf("seed secret: %v", err)
	}

	fs := New(root)
	ctx := context.Background()

	keys := []string{
		"",
		"../secret.txt",
		"renders/../../secret.txt",
		"/etc/passwd",
	}

	for _, key := range keys {
		if _, _, _, err := fs.GetObject(ctx, key); err == nil {
			t.Errorf("GetObject(%q) succeeded, want error", key)
		}
		if _, err := fs.PutObject(ctx, ports.PutObjectInput{
			ObjectKey: key,
			Reader:    strings.NewReader("x"),
		}); err == nil {
			t.Errorf("PutObject(%q) succeeded, want error", key)
		}
		if err := fs.DeleteObject(ctx, key); err == nil {
			t.Errorf("DeleteObject(%q) succeeded, want error", key)
		}
	}

	if data, err := os.ReadFile(filepath.Join(base, "secret.txt")); err != nil || string(data) != "db-password" {
		t.Fatalf("file outside the root was modified: %q, %v", data, err)
	}
}
