// Package memstore keeps uploaded tables in process memory for the lifetime
// of the server. There is no eviction.
package memstore

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"vizora/domain/core"
	"vizora/domain/dataset"
	"vizora/internal/errors"
)

// Store is a mutex-guarded upload registry.
type Store struct {
	mu    sync.RWMutex
	files map[core.FileID]*dataset.UploadedFile
	ids   *core.FileIDGenerator
	now   func() time.Time
}

func New() *Store {
	return &Store{
		files: make(map[core.FileID]*dataset.UploadedFile),
		ids:   core.NewFileIDGenerator(),
		now:   time.Now,
	}
}

// Put registers table under a fresh monotonic file ID.
func (s *Store) Put(ctx context.Context, filename string, table *dataset.Table) (*dataset.UploadedFile, error) {
	if table == nil {
		return nil, errors.InvalidInput("cannot register an empty upload")
	}
	id, err := s.ids.Next()
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate file id")
	}
	rec := &dataset.UploadedFile{
		FileID:     id,
		Filename:   filename,
		Table:      table,
		UploadedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.files[id] = rec
	n := len(s.files)
	s.mu.Unlock()

	log.Printf("[MemStore] Registered %s as %s (%d uploads held)", filename, id, n)
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id core.FileID) (*dataset.UploadedFile, error) {
	s.mu.RLock()
	rec, ok := s.files[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("file " + id.String())
	}
	return rec, nil
}

// List returns uploads oldest first. ULIDs sort by creation time.
func (s *Store) List(ctx context.Context) ([]dataset.UploadInfo, error) {
	s.mu.RLock()
	out := make([]dataset.UploadInfo, 0, len(s.files))
	for _, rec := range s.files {
		out = append(out, dataset.UploadInfo{
			FileID:     rec.FileID,
			Filename:   rec.Filename,
			Rows:       rec.Table.NumRows(),
			UploadedAt: rec.UploadedAt,
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FileID < out[j].FileID })
	return out, nil
}
