package ports

import "context"

// FileEventType classifies a change in a watched directory.
type FileEventType string

const (
	FileCreated  FileEventType = "created"
	FileModified FileEventType = "modified"
	FileDeleted  FileEventType = "deleted"
)

type FileEvent struct {
	Path string
	Type FileEventType
}

// FileWatcher streams changes under a directory until ctx is cancelled.
type FileWatcher interface {
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)
}
