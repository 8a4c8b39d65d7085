// Package storage builds the artifact storage backend named by the
// service configuration.
package storage

import (
	"context"
	"fmt"

	"abode/internal/adapters/storage/gdrive"
	"abode/internal/adapters/storage/localfs"
	"abode/internal/config"
	"abode/internal/ports"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Provider is the storage contract shared by the API and the worker.
type Provider = ports.StorageProvider

// NewProvider returns the backend selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.StorageConfig) (Provider, error) {
	switch cfg.Provider {
	case "localfs":
		return localfs.New(cfg.LocalRoot), nil

	case "gdrive":
		return newGDrive(ctx, cfg)

	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

func newGDrive(ctx context.Context, cfg config.StorageConfig) (Provider, error) {
	if cfg.GDriveClientID == "" || cfg.GDriveClientSecret == "" || cfg.GDriveRefreshToken == "" {
		return nil, fmt.Errorf("gdrive storage requires GDRIVE_CLIENT_ID, GDRIVE_CLIENT_SECRET and GDRIVE_REFRESH_TOKEN")
	}

	conf := &oauth2.Config{
		ClientID:     cfg.GDriveClientID,
		ClientSecret: cfg.GDriveClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	client := conf.Client(ctx, &oauth2.Token{RefreshToken: cfg.GDriveRefreshToken})

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return gdrive.NewClient(srv, cfg.GDriveFolderID), nil
}
