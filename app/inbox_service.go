package app

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vizora/domain/dataset"
	"vizora/ports"
)

// InboxService registers files dropped into a watched directory.
type InboxService struct {
	watcher ports.FileWatcher
	loader  ports.TableLoader
	store   ports.DatasetStore

	// settle delays loading so a file still being copied is read once complete
	settle time.Duration

	mu       sync.Mutex
	pending  map[string]*pendingLoad
	onUpload func(*dataset.UploadedFile)
}

func NewInboxService(watcher ports.FileWatcher, loader ports.TableLoader, store ports.DatasetStore) *InboxService {
	return &InboxService{
		watcher: watcher,
		loader:  loader,
		store:   store,
		settle:  500 * time.Millisecond,
		pending: make(map[string]*pendingLoad),
	}
}

// OnUpload registers a callback run after each successful registration.
func (s *InboxService) OnUpload(fn func(*dataset.UploadedFile)) {
	s.onUpload = fn
}

// Run watches dir until ctx is done.
func (s *InboxService) Run(ctx context.Context, dir string) error {
	events, err := s.watcher.Watch(ctx, dir)
	if err != nil {
		return err
	}
	log.Printf("[Inbox] Watching %s", dir)

	for ev := range events {
		switch ev.Type {
		case ports.FileCreated, ports.FileModified:
			s.schedule(ctx, ev.Path)
		case ports.FileDeleted:
			s.cancel(ev.Path)
		}
	}

	s.mu.Lock()
	for path, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, path)
	}
	s.mu.Unlock()
	return ctx.Err()
}

// pendingLoad is one scheduled load. A timer that fires after being
// superseded finds a different entry in the map and does nothing.
type pendingLoad struct {
	timer *time.Timer
}

// schedule coalesces bursts of writes to one load per file.
func (s *InboxService) schedule(ctx context.Context, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked(ctx, path)
}

// scheduleLocked requires s.mu.
func (s *InboxService) scheduleLocked(ctx context.Context, path string) {
	if p, ok := s.pending[path]; ok {
		p.timer.Stop()
	}
	entry := &pendingLoad{}
	s.pending[path] = entry
	entry.timer = time.AfterFunc(s.settle, func() {
		s.mu.Lock()
		if s.pending[path] != entry {
			s.mu.Unlock()
			return
		}
		delete(s.pending, path)
		s.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Ingest(ctx, path); err != nil {
			log.Printf("[Inbox] Failed to ingest %s: %v", path, err)
		}
	})
}

func (s *InboxService) cancel(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[path]; ok {
		p.timer.Stop()
		delete(s.pending, path)
	}
}

// Ingest loads and registers one file.
func (s *InboxService) Ingest(ctx context.Context, path string) (*dataset.UploadedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	table, err := s.loader.Load(name, f)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Put(ctx, name, table)
	if err != nil {
		return nil, err
	}
	log.Printf("[Inbox] ✓ Registered %s as %s", name, rec.FileID)
	if s.onUpload != nil {
		s.onUpload(rec)
	}
	return rec, nil
}
