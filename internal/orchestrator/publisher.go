package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"abode/internal/models"
	"abode/internal/ports"
)

// Publisher uploads a completed render artifact to durable storage and
// returns an addressable URL for it. Discard removes a published
// artifact again when its completion was never recorded, so storage
// holds no objects unreachable from any job.
type Publisher interface {
	Publish(ctx context.Context, job *models.RenderJob, artifactPath string) (string, error)
	Discard(ctx context.Context, outputURL string) error
}

// StoragePublisher publishes through a ports.StorageProvider (localfs,
// gdrive). publicBaseURL is joined with the object key to form the URL
// handed back to clients.
type StoragePublisher struct {
	sp            ports.StorageProvider
	publicBaseURL string
}

func NewStoragePublisher(sp ports.StorageProvider, publicBaseURL string) *StoragePublisher {
	return &StoragePublisher{
		sp:            sp,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (p *StoragePublisher) Publish(ctx context.Context, job *models.RenderJob, artifactPath string) (string, error) {
	f, err := os.Open(artifactPath)
	if err != nil {
		return "", fmt.Errorf("artifact not found: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("artifact stat failed: %w", err)
	}

	objectKey := fmt.Sprintf("renders/%s/%s", job.ID, filepath.Base(artifactPath))
	out, err := p.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: contentTypeFor(job.RenderType),
		Reader:      f,
		Size:        st.Size(),
	})
	if err != nil {
		return "", fmt.Errorf("artifact upload failed: %w", err)
	}

	return p.publicBaseURL + "/" + out.ObjectKey, nil
}

// Discard deletes the object behind a URL a previous Publish returned.
// The URL is publicBaseURL joined with the provider's object key, so
// stripping the prefix recovers the key for any provider, including
// gdrive where the key is the Drive file ID.
func (p *StoragePublisher) Discard(ctx context.Context, outputURL string) error {
	objectKey := strings.TrimPrefix(outputURL, p.publicBaseURL+"/")
	return p.sp.DeleteObject(ctx, objectKey)
}

func contentTypeFor(rt models.RenderType) string {
	if rt == models.RenderWalkthrough {
		return "video/mp4"
	}
	return "image/png"
}
