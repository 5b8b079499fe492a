package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

const lockFileName = "state.lock"

// Lock is an exclusive flock on the state directory. It keeps the state file
// single-writer: a second monitor instance pointed at the same directory
// fails at startup instead of interleaving writes.
type Lock struct {
	file *os.File
	path string
}

// AcquireLock takes a non-blocking exclusive lock in the state directory.
// The lock is released by Release or automatically when the process exits.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", stateDir, err)
	}

	lockPath := filepath.Join(stateDir, lockFileName)
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		return nil, fmt.Errorf("another instance holds %s: %w", lockPath, err)
	}

	if _, err := fmt.Fprintf(file, "pid=%d\n", os.Getpid()); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("write lock file %s: %w", lockPath, err)
	}

	return &Lock{file: file, path: lockPath}, nil
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close lock file %s: %w", l.path, err)
	}
	os.Remove(l.path)
	l.file = nil
	return nil
}
