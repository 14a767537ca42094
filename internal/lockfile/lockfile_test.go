package lockfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireThenReleaseRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.pid")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if !IsHeld(path) {
		t.Fatal("expected IsHeld to report true once acquired")
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if IsHeld(path) {
		t.Fatal("expected IsHeld to report false after release")
	}
}

func TestAcquireFailsAgainstLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.pid")

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer func() { _ = first.Release() }()

	if _, err := Acquire(path); err != ErrHeld {
		t.Fatalf("expected ErrHeld from a second Acquire, got %v", err)
	}
}

func TestAcquireReclaimsStalePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.pid")
	// A PID that (almost certainly) names no live process.
	if err := os.WriteFile(path, []byte("999999999\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("expected Acquire to reclaim a stale PID, got %v", err)
	}
	_ = lock.Release()
}

func TestTouchUpdatesModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.pid")
	lock, err := Acquire(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lock.Release() }()

	before, err := ModTime(path)
	if err != nil {
		t.Fatal(err)
	}
	old := before.Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	if err := Touch(path); err != nil {
		t.Fatal(err)
	}
	after, err := ModTime(path)
	if err != nil {
		t.Fatal(err)
	}
	if !after.After(old) {
		t.Fatalf("expected Touch to bump mtime past %v, got %v", old, after)
	}
}

func TestTouchOnMissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-created.pid")
	if err := Touch(path); err != nil {
		t.Fatalf("Touch on a missing file should be a no-op, got %v", err)
	}
}
