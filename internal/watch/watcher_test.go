package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldIgnore(t *testing.T) {
	tests := []struct {
		path   string
		ignore bool
	}{
		{"src/html/index.html", false},
		{"src/html/.index.html.swp", true},
		{"src/html/index.html~", true},
		{"src/js/#app.js#", true},
		{"src/.DS_Store", true},
		{"src/html/4913", true},
		{"src/data/content.js", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ignore, shouldIgnore(tt.path), tt.path)
	}
}

// waitForEvent rewrites path until the watcher reports it.
func waitForEvent(t *testing.T, w *Watcher, path, want string) Event {
	t.Helper()
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	for {
		select {
		case ev := <-w.Events():
			if ev.Path == want {
				return ev
			}
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		case <-deadline:
			t.Fatalf("no event for %s", want)
		}
	}
}

func TestWatcher_Events(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "html"), 0o755))

	w, err := NewWatcher(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	ev := waitForEvent(t, w, filepath.Join(root, "html", "index.html"), "html/index.html")
	assert.NotZero(t, ev.Op&(Create|Write))

	t.Run("new directories are watched", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "js", "lib"), 0o755))
		waitForEvent(t, w, filepath.Join(root, "js", "lib", "a.js"), "js/lib/a.js")
	})

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	_, open := <-w.Events()
	for open {
		_, open = <-w.Events()
	}
}
