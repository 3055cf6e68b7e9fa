package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vizora/adapters/memstore"
	"vizora/adapters/tabular"
	"vizora/domain/dataset"
	"vizora/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanWatcher struct {
	events chan ports.FileEvent
}

func (w *chanWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	return w.events, nil
}

func TestInboxIngest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scores.csv")
	require.NoError(t, os.WriteFile(path, []byte(scoresCSV), 0o644))

	store := memstore.New()
	inbox := NewInboxService(&chanWatcher{}, tabular.NewLoader(tabular.DefaultOptions()), store)

	var seen *dataset.UploadedFile
	inbox.OnUpload(func(f *dataset.UploadedFile) { seen = f })

	rec, err := inbox.Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "scores.csv", rec.Filename)
	assert.Equal(t, 3, rec.Table.NumRows())
	assert.Same(t, rec, seen)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestInboxIngest_MissingFile(t *testing.T) {
	inbox := NewInboxService(&chanWatcher{}, tabular.NewLoader(tabular.DefaultOptions()), memstore.New())
	_, err := inbox.Ingest(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestInboxRun_CoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scores.csv")
	require.NoError(t, os.WriteFile(path, []byte(scoresCSV), 0o644))

	watcher := &chanWatcher{events: make(chan ports.FileEvent, 4)}
	store := memstore.New()
	inbox := NewInboxService(watcher, tabular.NewLoader(tabular.DefaultOptions()), store)
	inbox.settle = 20 * time.Millisecond

	uploads := make(chan *dataset.UploadedFile, 4)
	inbox.OnUpload(func(f *dataset.UploadedFile) { uploads <- f })

	done := make(chan error, 1)
	go func() { done <- inbox.Run(context.Background(), dir) }()

	watcher.events <- ports.FileEvent{Path: path, Type: ports.FileCreated}
	watcher.events <- ports.FileEvent{Path: path, Type: ports.FileModified}
	watcher.events <- ports.FileEvent{Path: path, Type: ports.FileModified}

	select {
	case f := <-uploads:
		assert.Equal(t, "scores.csv", f.Filename)
	case <-time.After(2 * time.Second):
		t.Fatal("file was never ingested")
	}

	time.Sleep(100 * time.Millisecond)
	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	close(watcher.events)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the event stream closed")
	}
}

func TestInboxRun_DeleteCancelsPending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scores.csv")
	require.NoError(t, os.WriteFile(path, []byte(scoresCSV), 0o644))

	watcher := &chanWatcher{events: make(chan ports.FileEvent, 4)}
	store := memstore.New()
	inbox := NewInboxService(watcher, tabular.NewLoader(tabular.DefaultOptions()), store)
	inbox.settle = 50 * time.Millisecond

	watcher.events <- ports.FileEvent{Path: path, Type: ports.FileCreated}
	watcher.events <- ports.FileEvent{Path: path, Type: ports.FileDeleted}
	close(watcher.events)
	require.NoError(t, inbox.Run(context.Background(), dir))

	time.Sleep(150 * time.Millisecond)
	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInboxSchedule_FiredTimerIsNotRearmed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scores.csv")
	require.NoError(t, os.WriteFile(path, []byte(scoresCSV), 0o644))

	store := memstore.New()
	inbox := NewInboxService(&chanWatcher{}, tabular.NewLoader(tabular.DefaultOptions()), store)
	inbox.settle = time.Millisecond

	ctx := context.Background()
	inbox.mu.Lock()
	inbox.scheduleLocked(ctx, path)
	// let the first timer fire and block on the lock
	time.Sleep(50 * time.Millisecond)
	inbox.settle = 30 * time.Millisecond
	inbox.scheduleLocked(ctx, path)
	inbox.mu.Unlock()

	time.Sleep(250 * time.Millisecond)
	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	inbox.mu.Lock()
	assert.Empty(t, inbox.pending)
	inbox.mu.Unlock()
}
