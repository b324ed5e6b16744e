package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestWatcher(t *testing.T, root string) (*Watcher, chan struct{}) {
	t.Helper()
	changed := make(chan struct{}, 4)
	w := NewWatcher(root, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	w.SetDebounce(50 * time.Millisecond)
	return w, changed
}

func TestWatcher_SignalsNewFolder(t *testing.T) {
	root := t.TempDir()
	w, changed := newTestWatcher(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.Mkdir(filepath.Join(root, "200"), 0o755))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never reported the new folder")
	}
}

func TestWatcher_IgnoresPlainFiles(t *testing.T) {
	root := t.TempDir()
	w, changed := newTestWatcher(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.csv"), []byte("x"), 0o644))

	select {
	case <-changed:
		t.Fatal("plain file should not trigger a refresh")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StartTwiceAndStopIdempotent(t *testing.T) {
	root := t.TempDir()
	w, _ := newTestWatcher(t, root)
	ctx := context.Background()
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Start(ctx))
	w.Stop()
	w.Stop()
}

func TestWatcher_MissingRoot(t *testing.T) {
	w, _ := newTestWatcher(t, filepath.Join(t.TempDir(), "absent"))
	require.Error(t, w.Start(context.Background()))
}

func TestWatcher_ContextCancelEndsRun(t *testing.T) {
	root := t.TempDir()
	w, _ := newTestWatcher(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	select {
	case <-w.doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("run loop did not exit on cancellation")
	}
	w.Stop()
}
