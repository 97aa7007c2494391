package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWatcher_CallsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.txt")
	other := filepath.Join(dir, "other.txt")
	if err := os.WriteFile(path, []byte("fallback-policy: a\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := NewFileWatcher(path, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func() { changed <- struct{}{} })
	}()

	// The watcher registers asynchronously; keep writing until it reports.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for seen := false; !seen; {
		select {
		case <-changed:
			seen = true
		case <-tick.C:
			os.WriteFile(other, []byte("ignored"), 0o600)
			os.WriteFile(path, []byte("fallback-policy: b\n"), 0o600)
		case <-deadline:
			t.Fatal("no change reported within 5s")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	w, err := NewFileWatcher(filepath.Join(t.TempDir(), "missing", "rules.txt"), 0, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	if err := w.Watch(context.Background(), func() {}); err == nil {
		t.Error("expected error watching a missing directory")
	}
}
