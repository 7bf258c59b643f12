package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// ErrLockTimeout is returned when the catalog lock cannot be acquired
// before the timeout expires.
var ErrLockTimeout = errors.New("catalog lock timeout")

const (
	lockFilePerm   = 0o600
	lockMaxBackoff = 25 * time.Millisecond
)

// catalogLock is a shared flock held while a snapshot is being loaded, so a
// cooperating writer replacing the catalog mid-load is blocked instead of
// handing us a torn view.
//
// flock is advisory and inode-based; the lock lives on a dedicated ".lock"
// sibling of the catalog file that is never replaced.
type catalogLock struct {
	file *os.File
}

// acquireShared takes a shared lock on the catalog's lock file, polling with
// exponential backoff until timeout. Returns [ErrLockTimeout] when another
// process holds the exclusive lock for the whole window.
func acquireShared(lockPath string, timeout time.Duration) (*catalogLock, error) {
	file, err := os.OpenFile(lockPath, os.O_RDONLY|os.O_CREATE, lockFilePerm)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	backoff := time.Millisecond

	for {
		err = unix.Flock(int(file.Fd()), unix.LOCK_SH|unix.LOCK_NB)
		if err == nil {
			return &catalogLock{file: file}, nil
		}

		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EAGAIN) && !errors.Is(err, unix.EINTR) {
			_ = file.Close()

			return nil, fmt.Errorf("flock: %w", err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			_ = file.Close()

			return nil, fmt.Errorf("%w: after %s", ErrLockTimeout, timeout)
		}

		time.Sleep(min(backoff, remaining))

		if backoff < lockMaxBackoff {
			backoff *= 2
		}
	}
}

// Close releases the lock. Idempotent.
func (l *catalogLock) Close() error {
	if l.file == nil {
		return nil
	}

	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlock catalog: %w", unlockErr)
	}

	if closeErr != nil {
		closeErr = fmt.Errorf("close lock file: %w", closeErr)
	}

	return errors.Join(unlockErr, closeErr)
}
