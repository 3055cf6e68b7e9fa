package ports

import (
	"context"

	"vizora/domain/core"
	"vizora/domain/dataset"
)

// DatasetStore is the upload registry. Implementations assign collision-free
// file IDs and must be safe for concurrent use.
type DatasetStore interface {
	Put(ctx context.Context, filename string, table *dataset.Table) (*dataset.UploadedFile, error)
	Get(ctx context.Context, id core.FileID) (*dataset.UploadedFile, error)
	List(ctx context.Context) ([]dataset.UploadInfo, error)
}
