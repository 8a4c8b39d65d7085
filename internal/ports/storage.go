// Package ports declares the boundary contracts the orchestrator consumes.
package ports

import (
	"context"
	"io"
)

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// ObjectKey is the durable address of the stored artifact. The local
	// filesystem echoes the input key; Drive returns the file ID, which
	// later reads must use.
	ObjectKey string
	Size      int64
}

// StorageProvider stores and serves render artifacts.
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error
}
