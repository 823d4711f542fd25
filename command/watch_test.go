package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsWatchedFile(t *testing.T) {
	tests := map[string]bool{
		"tests/login.yaml":     true,
		"config/locators.YML":  true,
		"tests/notes.md":       false,
		"tests/login.yaml.swp": false,
	}
	for name, want := range tests {
		if got := isWatchedFile(name); got != want {
			t.Errorf("isWatchedFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestWatcher_Loop(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	w, err := newWatcher([]string{dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Close()
	w.delay = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runs := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Loop(ctx, func() { runs <- struct{}{} })
	}()

	waitRun := func(what string) {
		t.Helper()
		select {
		case <-runs:
		case <-ctx.Done():
			t.Fatalf("timed out waiting for %s", what)
		}
	}

	waitRun("initial run")

	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "case.yaml"), []byte("cases: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	waitRun("run after change")

	cancel()
	if err := <-done; err != nil {
		t.Errorf("unexpected loop error: %v", err)
	}
}

func TestNewWatcher_MissingPath(t *testing.T) {
	w, err := newWatcher([]string{filepath.Join(t.TempDir(), "missing")})
	if err != nil {
		t.Fatalf("missing paths should only warn, got %v", err)
	}
	w.Close()
}
