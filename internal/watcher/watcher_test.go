package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) onChange(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	if err := writeFile(cfg, "debug: false\n"); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w, err := NewWatcher([]string{cfg}, rec.onChange, WithDebounce(100*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := writeFile(cfg, "debug: true\n"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	waitFor(t, func() bool { return rec.count() >= 1 })
	time.Sleep(250 * time.Millisecond)
	if got := rec.count(); got != 1 {
		t.Errorf("expected one debounced callback, got %d", got)
	}
	rec.mu.Lock()
	if rec.paths[0] != cfg {
		t.Errorf("callback path = %q, want %q", rec.paths[0], cfg)
	}
	rec.mu.Unlock()
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	if err := writeFile(cfg, "x"); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w, err := NewWatcher([]string{cfg}, rec.onChange, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "other.yaml"), "y"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Errorf("expected no callbacks for unrelated file, got %d", got)
	}
}

func TestWatcher_RenameReplace(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	if err := writeFile(cfg, "a"); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w, err := NewWatcher([]string{cfg}, rec.onChange, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	tmp := filepath.Join(dir, "config.yaml.tmp")
	if err := writeFile(tmp, "b"); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, cfg); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.count() >= 1 })
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	if err := writeFile(cfg, "x"); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher([]string{cfg}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	w.Stop()
	// second Stop is a no-op
	w.Stop()
}

func TestWatcher_Start_missingDirectory(t *testing.T) {
	w, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing", "config.yaml")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Error("expected error when the parent directory does not exist")
	}
}

func TestWatcher_Files(t *testing.T) {
	w, err := NewWatcher([]string{"a/../config.yaml"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	files := w.Files()
	if len(files) != 1 || filepath.Base(files[0]) != "config.yaml" || !filepath.IsAbs(files[0]) {
		t.Errorf("Files() = %v", files)
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
