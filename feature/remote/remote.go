package remote

import (
	"context"
	"fmt"

	"diary-sync/core/reconcile"
	"diary-sync/core/storage"

	"github.com/spf13/afero"
	"google.golang.org/api/drive/v3"
)

// Deps are the collaborators New may use instead of building its own.
type Deps struct {
	// Storage configures the s3 kind.
	Storage storage.Config
	// Client overrides the S3 client.
	Client storage.Client
	// Fs overrides the filesystem of the local kind.
	Fs afero.Fs
	// Drive overrides the Drive client of the gdrive kind.
	Drive *drive.Service
}

// New builds the remote selected by cfg.Kind.
func New(ctx context.Context, cfg Config, deps Deps) (reconcile.Source, error) {
	switch cfg.Kind {
	case KindS3:
		client := deps.Client
		if client == nil {
			var err error
			client, err = storage.NewClient(deps.Storage)
			if err != nil {
				return nil, err
			}
		}
		return NewS3Source(client, deps.Storage.Bucket, deps.Storage.Prefix, cfg.Ext()), nil

	case KindLocal, "":
		fsys := deps.Fs
		if fsys == nil {
			fsys = afero.NewOsFs()
		}
		return NewDirSource(fsys, cfg.Dir, cfg.Ext()), nil

	case KindDrive:
		if cfg.DriveFolderID == "" {
			return nil, fmt.Errorf("remote.drive_folder_id is required for the gdrive remote")
		}
		svc := deps.Drive
		if svc == nil {
			var err error
			svc, err = NewDriveService(ctx, cfg)
			if err != nil {
				return nil, err
			}
		}
		return NewDriveSource(svc, cfg.DriveFolderID, cfg.Ext()), nil

	default:
		return nil, fmt.Errorf("unsupported remote kind %q (use s3, local or gdrive)", cfg.Kind)
	}
}
