package storage

import (
	"os"
	"time"
)

// lockRetryInterval is the pause between non-blocking lock attempts.
const lockRetryInterval = 10 * time.Millisecond

// FileLock is an advisory lock on path + ".lock", held by the history store
// while it is open so two runs never write the same file.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock returns an unacquired lock for path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// Lock polls for the exclusive lock until timeout, then gives up with
// ErrLockTimeout.
func (l *FileLock) Lock(timeout time.Duration) error {
	if err := ensureDir(l.path); err != nil {
		return &StorageError{Op: "lock", Entity: "file", ID: l.path, Err: err}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return &StorageError{Op: "lock", Entity: "file", ID: l.path, Err: err}
	}

	deadline := time.Now().Add(timeout)
	for tryLock(f) != nil {
		if !time.Now().Before(deadline) {
			f.Close()
			return ErrLockTimeout
		}
		time.Sleep(lockRetryInterval)
	}

	l.file = f
	return nil
}

// Unlock releases the lock and removes the lock file. It is a no-op when the
// lock is not held.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	unlock(l.file)
	l.file.Close()
	l.file = nil
	os.Remove(l.path)
	return nil
}
