// Package lockfile implements the single-worker election and stay-alive
// signalling protocol: a PID file at <repo>/.lb/sync.pid, liveness-probed
// with signal 0, with mtime touches standing in for a heartbeat. Election
// is probe-based rather than flock-based since multiple short-lived CLI
// invocations, not just one long-lived daemon, contend for the file here.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

// ErrHeld is returned by Acquire when a live process already owns the
// PID file.
var ErrHeld = errors.New("lockfile: already held by a live process")

// Lock is a held PID-file lock. The zero value is not usable; obtain one
// via Acquire.
type Lock struct {
	path string
	file *os.File
}

// Acquire attempts to become the sole owner of the PID file at path. If
// the file is absent, or present but names a dead process, it is
// (re)written with the caller's PID and a Lock is returned. If it names
// a live process, Acquire returns ErrHeld without modifying the file.
func Acquire(path string) (*Lock, error) {
	// A flock on a sibling file serializes the read-check-write sequence
	// below across processes; without it two short-lived CLI invocations
	// can both observe a dead/absent PID and both believe they won.
	fl := flock.New(path + ".flock")
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("lockfile: tie-break lock %s: %w", path, err)
	}
	defer func() { _ = fl.Unlock() }()

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}

	pid, readErr := readPID(f)
	if readErr == nil && pid > 0 && processAlive(pid) {
		_ = f.Close()
		return nil, ErrHeld
	}

	// Absent, unparsable, or stale: claim it.
	if err := writePID(f, os.Getpid()); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Lock{path: path, file: f}, nil
}

// Release unlinks the PID file. Safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	path, f := l.path, l.file
	l.file = nil
	_ = f.Close()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lockfile: remove %s: %w", path, err)
	}
	return nil
}

// Touch updates the PID file's mtime without altering its contents,
// signalling a running worker to reset its idle timer.
// It is a no-op, not an error, if the file has already been removed by
// the worker exiting between caller checks.
func Touch(path string) error {
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("lockfile: touch %s: %w", path, err)
	}
	return nil
}

// IsHeld reports whether path currently names a live process, without
// acquiring or modifying the file.
func IsHeld(path string) bool {
	f, err := os.Open(path) // #nosec G304 -- path is caller-controlled repo state dir
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	pid, err := readPID(f)
	if err != nil {
		return false
	}
	return pid > 0 && processAlive(pid)
}

// ModTime returns the PID file's current mtime, used by the worker to
// detect enqueuer touches between polls.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func readPID(f *os.File) (int, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Fscanf(f, "%d", &pid); err != nil {
		return 0, err
	}
	return pid, nil
}

func writePID(f *os.File, pid int) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "%d\n", pid); err != nil {
		return err
	}
	return f.Sync()
}

// processAlive probes pid with signal 0, the portable "is it there"
// check: the kernel performs permission and existence checks without
// actually delivering a signal.
func processAlive(pid int) bool {
	err := unix.Kill(pid, syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}
