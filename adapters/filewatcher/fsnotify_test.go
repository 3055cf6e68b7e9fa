package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vizora/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_EmitsAcceptedFiles(t *testing.T) {
	dir := t.TempDir()
	watcher, err := NewFSNotifyWatcher(func(p string) bool { return strings.HasSuffix(p, ".csv") })
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events, err := watcher.Watch(ctx, dir)
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644)
		_ = os.WriteFile(filepath.Join(dir, ".hidden.csv"), []byte("skip"), 0o644)
		_ = os.WriteFile(filepath.Join(dir, "sales.csv"), []byte("a,b\n1,2\n"), 0o644)
	}()

	select {
	case ev := <-events:
		assert.Equal(t, "sales.csv", filepath.Base(ev.Path))
		assert.Contains(t, []ports.FileEventType{ports.FileCreated, ports.FileModified}, ev.Type)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	watcher, err := NewFSNotifyWatcher(nil)
	require.NoError(t, err)
	defer watcher.Stop()

	_, err = watcher.Watch(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestIsTempFile(t *testing.T) {
	assert.True(t, isTempFile("/in/.DS_Store"))
	assert.True(t, isTempFile("/in/~$book.xlsx"))
	assert.True(t, isTempFile("/in/data.csv~"))
	assert.False(t, isTempFile("/in/data.csv"))
}
